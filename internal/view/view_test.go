package view

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
)

var teams = []string{"Chennai", "Mumbai"}

func lot(name string, n int) engine.Lot {
	l := engine.Lot{Name: name}
	for i := 0; i < n; i++ {
		l.Players = append(l.Players, engine.Player{
			Name:        fmt.Sprintf("%s-%d", name, i),
			Role:        engine.RoleBowler,
			SourceTeam:  fmt.Sprintf("%s-src-%d", name, i),
			Nationality: engine.Domestic,
			BasePrice:   decimal.NewFromInt(2),
		})
	}
	return l
}

func newEngine(t *testing.T, lots ...engine.Lot) *engine.Engine {
	t.Helper()
	src := engine.SourceFunc(func() (engine.Catalog, error) { return engine.Catalog{Lots: lots}, nil })
	e, err := engine.New(engine.DefaultRules(), teams, src, engine.WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e
}

func TestProject_OpeningState(t *testing.T) {
	e := newEngine(t, lot("Marquee", 3), lot("Capped", 2))

	v := Project(e.State())
	assert.Equal(t, engine.PhaseLots, v.Phase)
	require.NotNil(t, v.Player)
	assert.Equal(t, "Marquee-0", v.Player.Name)
	assert.True(t, v.CurrentBid.IsZero())
	require.NotNil(t, v.NextBid)
	assert.Equal(t, "2", v.NextBid.String())
	assert.Equal(t, "Lot 1 of 2: Marquee", v.LotInfo)
	assert.Equal(t, "Player 1 of 3", v.Progress)
	assert.False(t, v.CanUndoBid)
	assert.False(t, v.CanUndoResolution)
	require.Len(t, v.Teams, 2)
	for _, ts := range v.Teams {
		assert.True(t, ts.CanBid)
		assert.Empty(t, ts.Warnings)
		assert.Equal(t, "120", ts.Purse.String())
	}
}

func TestProject_LeaderAndBlockedTeams(t *testing.T) {
	e := newEngine(t, lot("Marquee", 2))
	_, err := e.PlaceBid("Mumbai", nil)
	require.NoError(t, err)

	v := Project(e.State())
	assert.Equal(t, "Mumbai", v.Leader)
	assert.Equal(t, 1, v.BidCount)
	assert.Equal(t, "2.5", v.NextBid.String())
	assert.True(t, v.CanUndoBid)

	mi := v.Teams[1]
	assert.True(t, mi.IsLeader)
	assert.False(t, mi.CanBid)
	assert.Equal(t, engine.ReasonAlreadyLeading, mi.Blocked)
	assert.Equal(t, "Already highest bidder", mi.BlockText)
	assert.True(t, v.Teams[0].CanBid)
}

func TestProject_AfterSaleAndUnsoldRound(t *testing.T) {
	e := newEngine(t, lot("Marquee", 2))
	_, err := e.PlaceBid("Chennai", nil)
	require.NoError(t, err)
	_, err = e.ResolveAndAdvance()
	require.NoError(t, err)
	_, err = e.ResolveAndAdvance()
	require.NoError(t, err)

	v := Project(e.State())
	assert.Equal(t, engine.PhaseUnsold, v.Phase)
	assert.Equal(t, "Unsold round", v.LotInfo)
	assert.Equal(t, "Player 1 of 1", v.Progress)
	assert.Equal(t, UnsoldInfo{Size: 1, Position: 1}, v.Unsold)
	assert.True(t, v.CanUndoResolution)
	assert.Equal(t, "Lots complete. 1 players in the Unsold List", v.Message)
	require.NotNil(t, v.MessageTime)

	csk := v.Teams[0]
	assert.Equal(t, 1, csk.Players)
	assert.Equal(t, "2", csk.Spent.String())
	assert.Equal(t, 1, csk.Roles[engine.RoleBowler])
}

func TestProject_Complete(t *testing.T) {
	e := newEngine(t, lot("Marquee", 1))
	_, err := e.ResolveAndAdvance()
	require.NoError(t, err)
	_, err = e.ResolveAndAdvance()
	require.NoError(t, err)

	v := Project(e.State())
	assert.Equal(t, engine.PhaseComplete, v.Phase)
	assert.Nil(t, v.Player)
	assert.Nil(t, v.NextBid)
	assert.Equal(t, "Auction complete", v.LotInfo)
	assert.Equal(t, "0 sold, 1 unsold", v.Progress)
	for _, ts := range v.Teams {
		assert.False(t, ts.CanBid)
		assert.Empty(t, ts.Blocked)
	}
}

func TestProject_EmptyCatalog(t *testing.T) {
	e := newEngine(t)
	v := Project(e.State())
	assert.Nil(t, v.Player)
	assert.Equal(t, "No lots loaded", v.LotInfo)
}

func TestProject_HasNoSideEffects(t *testing.T) {
	e := newEngine(t, lot("Marquee", 2))
	_, err := e.PlaceBid("Chennai", nil)
	require.NoError(t, err)

	before := e.State()
	first := Project(before)
	first.Teams[0].Roles[engine.RoleBatter] = 99
	second := Project(e.State())
	assert.Equal(t, 0, second.Teams[0].Roles[engine.RoleBatter])
	assert.Equal(t, before.Bid.String(), e.State().Bid.String())
}

func TestView_JSONShape(t *testing.T) {
	e := newEngine(t, lot("Marquee", 1))
	_, err := e.ResolveAndAdvance()
	require.NoError(t, err)

	raw, err := json.Marshal(Project(e.State()))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "unsold", m["phase"])
	assert.Contains(t, m, "ui_message")
	assert.Contains(t, m, "teams")
	assert.Equal(t, "0", m["current_bid"])
}

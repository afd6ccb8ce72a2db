package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testTeams = []string{"Chennai", "Mumbai", "Bangalore"}

var fixedNow = time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func mkPlayer(name string, role Role, source string, nat Nationality, uncapped bool, base string) Player {
	return Player{
		Name:        name,
		Role:        role,
		SourceTeam:  source,
		Nationality: nat,
		Uncapped:    uncapped,
		BasePrice:   dec(base),
	}
}

// mkLot builds a lot of n capped domestic batters with base price 2,
// each from its own source team.
func mkLot(name string, n int) Lot {
	lot := Lot{Name: name}
	for i := 0; i < n; i++ {
		lot.Players = append(lot.Players, mkPlayer(fmt.Sprintf("%s-%d", name, i), RoleBatter, fmt.Sprintf("SRC-%s-%d", name, i), Domestic, false, "2"))
	}
	return lot
}

func staticSource(lots ...Lot) Source {
	return SourceFunc(func() (Catalog, error) {
		return Catalog{Lots: lots}, nil
	})
}

func newTestEngine(t testing.TB, lots ...Lot) *Engine {
	t.Helper()
	e, err := New(DefaultRules(), testTeams, staticSource(lots...), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e
}

// rosterWith builds a roster holding players, each bought at price.
func rosterWith(name string, price string, players ...Player) TeamRoster {
	r := NewTeamRoster(name, DefaultRules().Purse, nil)
	for _, p := range players {
		r.add(p, dec(price))
	}
	return r
}

// fillers returns n capped domestic players of role from distinct sources.
func fillers(prefix string, role Role, n int) []Player {
	out := make([]Player, n)
	for i := range out {
		out[i] = mkPlayer(fmt.Sprintf("%s%d", prefix, i), role, fmt.Sprintf("%s-src-%d", prefix, i), Domestic, false, "1")
	}
	return out
}

// settled strips fields that legitimately differ across an undo.
func settled(s State) State {
	s.Notice = nil
	s.UndoDepth = 0
	return s
}

package ws

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
	"github.com/DoyleJ11/auction-draft-backend/internal/hub"
	"github.com/DoyleJ11/auction-draft-backend/internal/lobby"
	"github.com/DoyleJ11/auction-draft-backend/internal/types"
)

func newServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	lot := engine.Lot{Name: "Marquee"}
	for i := 0; i < 3; i++ {
		lot.Players = append(lot.Players, engine.Player{
			Name:        fmt.Sprintf("P%d", i),
			Role:        engine.RoleBowler,
			SourceTeam:  fmt.Sprintf("SRC%d", i),
			Nationality: engine.Domestic,
			BasePrice:   decimal.NewFromInt(2),
		})
	}
	e, err := engine.New(engine.DefaultRules(), []string{"Chennai", "Mumbai"}, engine.SourceFunc(func() (engine.Catalog, error) {
		return engine.Catalog{Lots: []engine.Lot{lot}}, nil
	}))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	var hash []byte
	if secret != "" {
		hash, err = bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	log := zaptest.NewLogger(t)
	h := hub.NewHub(ctx, lobby.NewLobby(ctx, e, log), hash, log)
	srv := httptest.NewServer(Handler(h, log))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, role string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?role=" + role
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil skips messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(types.ServerMessage) bool) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var msg types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if match(msg) {
			return msg
		}
	}
}

func write(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func isType(typ string) func(types.ServerMessage) bool {
	return func(m types.ServerMessage) bool { return m.Type == typ }
}

func TestHandler_AuctioneerBidsAndViewersSeeIt(t *testing.T) {
	srv := newServer(t, "")

	auc := dial(t, srv, "auctioneer")
	first := readUntil(t, auc, isType(types.MsgAuctionUpdate))
	require.NotNil(t, first.State)
	assert.Equal(t, "P0", first.State.Player.Name)

	viewer := dial(t, srv, "viewer")
	joined := readUntil(t, viewer, isType(types.MsgAuctionUpdate))
	assert.Equal(t, 2, joined.Viewers)

	write(t, auc, types.ClientMessage{Type: types.MsgPlaceBid, Team: "Mumbai"})
	update := readUntil(t, viewer, func(m types.ServerMessage) bool {
		return m.Type == types.MsgAuctionUpdate && m.Version == 1
	})
	assert.Equal(t, "Mumbai", update.State.Leader)
	assert.Equal(t, "2", update.State.CurrentBid.String())
}

func TestHandler_ViewerCannotMutate(t *testing.T) {
	srv := newServer(t, "")
	viewer := dial(t, srv, "viewer")
	readUntil(t, viewer, isType(types.MsgAuctionUpdate))

	write(t, viewer, types.ClientMessage{Type: types.MsgNextPlayer})
	msg := readUntil(t, viewer, isType(types.MsgError))
	assert.Equal(t, "Only auctioneer can move to the next player", msg.Error)
}

func TestHandler_RejectionCarriesReason(t *testing.T) {
	srv := newServer(t, "")
	auc := dial(t, srv, "auctioneer")
	readUntil(t, auc, isType(types.MsgAuctionUpdate))

	write(t, auc, types.ClientMessage{Type: types.MsgPlaceBid, Team: "Chennai"})
	write(t, auc, types.ClientMessage{Type: types.MsgPlaceBid, Team: "Chennai"})
	msg := readUntil(t, auc, isType(types.MsgError))
	assert.Equal(t, string(engine.ReasonAlreadyLeading), msg.Reason)

	low := decimal.NewFromInt(1)
	write(t, auc, types.ClientMessage{Type: types.MsgPlaceBid, Team: "Mumbai", Amount: &low})
	msg = readUntil(t, auc, isType(types.MsgError))
	assert.Equal(t, string(engine.ReasonBelowBasePrice), msg.Reason)
}

func TestHandler_SecretVerification(t *testing.T) {
	srv := newServer(t, "hammer")
	auc := dial(t, srv, "auctioneer")
	readUntil(t, auc, isType(types.MsgAuctionUpdate))

	write(t, auc, types.ClientMessage{Type: types.MsgUndoBid})
	msg := readUntil(t, auc, isType(types.MsgError))
	assert.Equal(t, "not_verified", msg.Reason)

	write(t, auc, types.ClientMessage{Type: types.MsgVerify, Secret: "wrong"})
	msg = readUntil(t, auc, isType(types.MsgError))
	assert.Equal(t, hub.ErrBadSecret.Error(), msg.Error)

	write(t, auc, types.ClientMessage{Type: types.MsgVerify, Secret: "hammer"})
	readUntil(t, auc, isType(types.MsgNotice))

	write(t, auc, types.ClientMessage{Type: types.MsgNextPlayer})
	update := readUntil(t, auc, func(m types.ServerMessage) bool {
		return m.Type == types.MsgAuctionUpdate && m.Version == 1
	})
	assert.Equal(t, "P0 moved to Unsold List", update.State.Message)
}

func TestHandler_BadInput(t *testing.T) {
	srv := newServer(t, "")
	auc := dial(t, srv, "auctioneer")
	readUntil(t, auc, isType(types.MsgAuctionUpdate))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, auc.Write(ctx, websocket.MessageText, []byte("{not json")))
	assert.Equal(t, "bad json", readUntil(t, auc, isType(types.MsgError)).Error)

	write(t, auc, types.ClientMessage{Type: "dance"})
	assert.Equal(t, "unknown type", readUntil(t, auc, isType(types.MsgError)).Error)
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
	"github.com/DoyleJ11/auction-draft-backend/internal/hub"
	"github.com/DoyleJ11/auction-draft-backend/internal/lobby"
	"github.com/DoyleJ11/auction-draft-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// actions names each mutating message for the "Only auctioneer can ..." error.
var actions = map[string]string{
	types.MsgPlaceBid:       "place bids",
	types.MsgUndoBid:        "undo bids",
	types.MsgNextPlayer:     "move to the next player",
	types.MsgUndoNextPlayer: "undo the last result",
	types.MsgResetAuction:   "reset the auction",
}

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		lb := h.Lobby()
		role := hub.ParseRole(r.URL.Query().Get("role"))

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx := r.Context()
		clientID := uuid.NewString()
		clog := log.With(zap.String("client", clientID), zap.String("role", string(role)))

		if _, err := h.Register(ctx, clientID, role); err != nil {
			clog.Warn("register failed", zap.Error(err))
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}
		defer func() { _ = h.Unregister(context.WithoutCancel(ctx), clientID) }()

		out := make(chan lobby.Snapshot, 8)
		if err := lb.Send(ctx, lobby.Join{ClientID: clientID, Outbox: out}); err != nil {
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}
		defer func() { _ = lb.Send(context.WithoutCancel(ctx), lobby.Leave{ClientID: clientID}) }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case snap, ok := <-out:
					if !ok {
						// dropped as too slow, or the lobby stopped
						conn.Close(websocket.StatusPolicyViolation, "snapshot stream closed")
						return
					}
					v := snap.View
					send(writeCtx, conn, types.ServerMessage{
						Type:    types.MsgAuctionUpdate,
						Version: snap.Version,
						Viewers: snap.Viewers,
						State:   &v,
					})
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				send(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}
			if reply, ok := handle(ctx, h, clientID, cm); ok {
				send(ctx, conn, reply)
			}
		}
	}
}

// handle runs one client message. The returned message, if any, goes back
// to this client only; accepted commands reach everyone via the lobby.
func handle(ctx context.Context, h *hub.Hub, clientID string, cm types.ClientMessage) (types.ServerMessage, bool) {
	if cm.Type == types.MsgVerify {
		if err := h.Verify(ctx, clientID, cm.Secret); err != nil {
			return types.ServerMessage{Type: types.MsgError, Error: err.Error()}, true
		}
		return types.ServerMessage{Type: types.MsgNotice, Notice: "auctioneer verified"}, true
	}

	cmd, ok := toEngineCommand(cm)
	if !ok {
		return types.ServerMessage{Type: types.MsgError, Error: "unknown type"}, true
	}
	if err := h.Do(ctx, clientID, cmd); err != nil {
		if hub.IsAuthError(err) {
			msg := types.ServerMessage{Type: types.MsgError, Error: "Only auctioneer can " + actions[cm.Type]}
			if errors.Is(err, hub.ErrNotVerified) {
				msg.Reason = "not_verified"
			}
			return msg, true
		}
		msg := types.ServerMessage{Type: types.MsgError, Error: err.Error()}
		if reason, ok := engine.ReasonOf(err); ok {
			msg.Reason = string(reason)
		}
		return msg, true
	}
	return types.ServerMessage{}, false
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case types.MsgPlaceBid:
		return engine.Command{Type: engine.CmdPlaceBid, Team: m.Team, Amount: m.Amount}, true
	case types.MsgUndoBid:
		return engine.Command{Type: engine.CmdUndoBid}, true
	case types.MsgNextPlayer:
		return engine.Command{Type: engine.CmdNextPlayer}, true
	case types.MsgUndoNextPlayer:
		return engine.Command{Type: engine.CmdUndoNextPlayer}, true
	case types.MsgResetAuction:
		return engine.Command{Type: engine.CmdReset}, true
	default:
		return engine.Command{}, false
	}
}

func send(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, conn, msg)
}

// Package hub tracks connected sessions and who holds the auctioneer
// seat. There is one seat; only its holder may change the auction.
package hub

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
	"github.com/DoyleJ11/auction-draft-backend/internal/lobby"
)

var (
	ErrNotAuctioneer  = errors.New("not an auctioneer session")
	ErrNotVerified    = errors.New("auctioneer not verified")
	ErrSeatTaken      = errors.New("auctioneer seat already taken")
	ErrBadSecret      = errors.New("wrong auctioneer secret")
	ErrUnknownSession = errors.New("unknown session")
	ErrHubClosed      = errors.New("hub closed")
)

type Role string

const (
	RoleAuctioneer Role = "auctioneer"
	RoleViewer     Role = "viewer"
)

// ParseRole maps a query value to a Role; anything unknown is a viewer.
func ParseRole(s string) Role {
	if Role(s) == RoleAuctioneer {
		return RoleAuctioneer
	}
	return RoleViewer
}

type Session struct {
	ClientID string
	Role     Role
	Seated   bool
}

type HubMsg interface{ isHubMsg() }

type Register struct {
	ClientID string
	Role     Role
	Reply    chan Session
}

type Unregister struct {
	ClientID string
}

type Verify struct {
	ClientID string
	Secret   string
	Reply    chan error
}

type Authorize struct {
	ClientID string
	Reply    chan error
}

// Command checks the seat and hands cmd to the lobby in one step, so a
// seat change can never slip between the check and the enqueue. Reply
// gets the authorization error or, once forwarded, the engine's answer.
type Command struct {
	ClientID string
	Cmd      engine.Command
	Reply    chan error
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Unregister) isHubMsg()  {}
func (Verify) isHubMsg()      {}
func (Authorize) isHubMsg()   {}
func (Command) isHubMsg()     {}
func (Count) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox    chan HubMsg
	lobby    *lobby.Lobby
	secret   []byte // bcrypt hash; nil means the seat is free for the taking
	sessions map[string]Session
	seat     string
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, lb *lobby.Lobby, secretHash []byte, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobby:    lb,
		secret:   secretHash,
		sessions: make(map[string]Session),
		log:      log.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Lobby is the auction room every session joins.
func (h *Hub) Lobby() *lobby.Lobby { return h.lobby }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				s := Session{ClientID: msg.ClientID, Role: msg.Role}
				if s.Role == RoleAuctioneer && h.secret == nil && h.seat == "" {
					h.seat, s.Seated = s.ClientID, true
				}
				h.sessions[s.ClientID] = s
				h.log.Info("session registered",
					zap.String("client", s.ClientID),
					zap.String("role", string(s.Role)),
					zap.Bool("seated", s.Seated))
				msg.Reply <- s

			case Unregister:
				delete(h.sessions, msg.ClientID)
				if h.seat == msg.ClientID {
					h.seat = ""
					h.log.Info("auctioneer seat freed", zap.String("client", msg.ClientID))
				}

			case Verify:
				msg.Reply <- h.verify(msg.ClientID, msg.Secret)

			case Authorize:
				msg.Reply <- h.authorize(msg.ClientID)

			case Command:
				h.forward(msg)

			case Count:
				msg.Reply <- len(h.sessions)

			case ShutdownHub:
				if h.lobby != nil {
					select {
					case h.lobby.Inbox() <- lobby.Shutdown{}:
					case <-h.lobby.Done():
					}
				}
				clear(h.sessions)
				h.seat = ""
				h.cancel()
			}
		}
	}
}

func (h *Hub) verify(clientID, secret string) error {
	s, ok := h.sessions[clientID]
	switch {
	case !ok:
		return ErrUnknownSession
	case s.Role != RoleAuctioneer:
		return ErrNotAuctioneer
	case s.Seated:
		return nil
	case h.seat != "":
		return ErrSeatTaken
	}
	if h.secret != nil {
		if err := bcrypt.CompareHashAndPassword(h.secret, []byte(secret)); err != nil {
			h.log.Warn("auctioneer verification failed", zap.String("client", clientID))
			return ErrBadSecret
		}
	}
	s.Seated = true
	h.sessions[clientID] = s
	h.seat = clientID
	h.log.Info("auctioneer verified", zap.String("client", clientID))
	return nil
}

func (h *Hub) authorize(clientID string) error {
	s, ok := h.sessions[clientID]
	switch {
	case !ok:
		return ErrUnknownSession
	case s.Role != RoleAuctioneer:
		return ErrNotAuctioneer
	case !s.Seated:
		return ErrNotVerified
	}
	return nil
}

func (h *Hub) forward(msg Command) {
	if err := h.authorize(msg.ClientID); err != nil {
		msg.Reply <- err
		return
	}
	if h.lobby == nil {
		msg.Reply <- lobby.ErrClosed
		return
	}
	select {
	case h.lobby.Inbox() <- lobby.FromClient{ClientID: msg.ClientID, Cmd: msg.Cmd, Reply: msg.Reply}:
	case <-h.lobby.Done():
		msg.Reply <- lobby.ErrClosed
	case <-h.ctx.Done():
	}
}

func (h *Hub) send(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func ask[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	if err := h.send(ctx, msg); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	}
}

func (h *Hub) Register(ctx context.Context, clientID string, role Role) (Session, error) {
	reply := make(chan Session, 1)
	return ask(ctx, h, Register{ClientID: clientID, Role: role, Reply: reply}, reply)
}

func (h *Hub) Unregister(ctx context.Context, clientID string) error {
	return h.send(ctx, Unregister{ClientID: clientID})
}

// Verify claims the auctioneer seat for clientID using the shared secret.
func (h *Hub) Verify(ctx context.Context, clientID, secret string) error {
	reply := make(chan error, 1)
	err, sendErr := ask(ctx, h, Verify{ClientID: clientID, Secret: secret, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

// Authorize returns nil only for the current seat holder.
func (h *Hub) Authorize(ctx context.Context, clientID string) error {
	reply := make(chan error, 1)
	err, sendErr := ask(ctx, h, Authorize{ClientID: clientID, Reply: reply}, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

// Do runs cmd for clientID if, and only while, it holds the seat.
// Authorization failures come back as ErrUnknownSession, ErrNotAuctioneer
// or ErrNotVerified; anything else is the engine's answer.
func (h *Hub) Do(ctx context.Context, clientID string, cmd engine.Command) error {
	reply := make(chan error, 1)
	if err := h.send(ctx, Command{ClientID: clientID, Cmd: cmd, Reply: reply}); err != nil {
		return err
	}
	var lobbyDone <-chan struct{}
	if h.lobby != nil {
		lobbyDone = h.lobby.Done()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-lobbyDone:
		return lobby.ErrClosed
	}
}

// IsAuthError reports whether err came from the seat check rather than
// from the auction.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnknownSession) || errors.Is(err, ErrNotAuctioneer) || errors.Is(err, ErrNotVerified)
}

func (h *Hub) Sessions(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	return ask(ctx, h, Count{Reply: reply}, reply)
}

// HashSecret prepares a plain secret for NewHub. An empty secret yields nil.
func HashSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	return bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
}

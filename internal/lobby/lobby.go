package lobby

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
	"github.com/DoyleJ11/auction-draft-backend/internal/view"
)

var ErrClosed = errors.New("lobby closed")

// Auction is the part of the engine the lobby drives.
type Auction interface {
	Apply(cmd engine.Command) ([]engine.Event, error)
	State() engine.State
	Export(team string) ([]engine.ExportRow, error)
}

type Msg interface{ isLobbyMsg() }

// FromClient carries one command. Reply, if set, gets the result and
// must have room for one value.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
	Reply    chan error
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan Snapshot
}

func (GetState) isLobbyMsg() {}

type Export struct {
	Team  string
	Reply chan ExportResult
}

func (Export) isLobbyMsg() {}

type ExportResult struct {
	Rows []engine.ExportRow
	Err  error
}

// Snapshot is what every viewer receives. Version moves on every state
// change; presence updates resend the same version with a new count.
type Snapshot struct {
	Version int
	Viewers int
	View    view.View
}

type Lobby struct {
	inbox   chan Msg
	auction Auction
	version int
	clients map[string]chan Snapshot
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, a Auction, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:   make(chan Msg, 64),
		auction: a,
		clients: make(map[string]chan Snapshot),
		log:     log.Named("lobby"),
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				l.log.Debug("viewer joined", zap.String("client", msg.ClientID), zap.Int("viewers", len(l.clients)))
				l.broadcast(l.snapshot())

			case Leave:
				if _, ok := l.clients[msg.ClientID]; !ok {
					break
				}
				delete(l.clients, msg.ClientID)
				l.log.Debug("viewer left", zap.String("client", msg.ClientID), zap.Int("viewers", len(l.clients)))
				l.broadcast(l.snapshot())

			case FromClient:
				l.handleCommand(msg)

			case GetState:
				msg.Reply <- l.snapshot()

			case Export:
				rows, err := l.auction.Export(msg.Team)
				msg.Reply <- ExportResult{Rows: rows, Err: err}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleCommand(msg FromClient) {
	events, err := l.auction.Apply(msg.Cmd)
	fields := []zap.Field{
		zap.String("client", msg.ClientID),
		zap.String("cmd", string(msg.Cmd.Type)),
	}
	switch {
	case err == nil:
		l.log.Info("command applied", append(fields, zap.Int("events", len(events)))...)
	case len(events) > 0:
		// reset rebuilt the engine but the catalog had problems
		l.log.Warn("command applied with errors", append(fields, zap.Error(err))...)
	case errors.Is(err, engine.ErrRejected):
		l.log.Info("command rejected", append(fields, zap.Error(err))...)
	default:
		l.log.Debug("command not applied", append(fields, zap.Error(err))...)
	}
	if msg.Reply != nil {
		msg.Reply <- err
	}
	if len(events) == 0 {
		return
	}
	l.version++
	l.broadcast(l.snapshot())
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{
		Version: l.version,
		Viewers: len(l.clients),
		View:    view.Project(l.auction.State()),
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow viewer", zap.String("client", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Send delivers msg unless ctx ends or the lobby has stopped.
func (l *Lobby) Send(ctx context.Context, msg Msg) error {
	select {
	case l.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrClosed
	}
}

// Do applies cmd and waits for the engine's answer.
func (l *Lobby) Do(ctx context.Context, clientID string, cmd engine.Command) error {
	reply := make(chan error, 1)
	if err := l.Send(ctx, FromClient{ClientID: clientID, Cmd: cmd, Reply: reply}); err != nil {
		return err
	}
	return wait(ctx, l.ctx, reply)
}

// State returns the current broadcast snapshot.
func (l *Lobby) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := l.Send(ctx, GetState{Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-l.ctx.Done():
		return Snapshot{}, ErrClosed
	}
}

// ExportRows lists sold players for team, or all teams when team is "".
func (l *Lobby) ExportRows(ctx context.Context, team string) ([]engine.ExportRow, error) {
	reply := make(chan ExportResult, 1)
	if err := l.Send(ctx, Export{Team: team, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Rows, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.ctx.Done():
		return nil, ErrClosed
	}
}

func wait(ctx, lobbyCtx context.Context, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-lobbyCtx.Done():
		return ErrClosed
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

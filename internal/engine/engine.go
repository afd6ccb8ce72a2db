package engine

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrRejected = errors.New("bid rejected")
var ErrNoCurrentPlayer = errors.New("no current player")
var ErrNoBidHistory = errors.New("no bid to undo")
var ErrNoSnapshot = errors.New("no resolution to undo")
var ErrUnknownTeam = errors.New("unknown team")
var ErrUnsupportedCommand = errors.New("unsupported command")

// RejectionError is returned when the validator or the explicit-amount
// bounds refuse a bid. errors.Is(err, ErrRejected) holds for it.
type RejectionError struct {
	Team   string
	Reason Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Team, e.Reason.Message())
}

func (e *RejectionError) Is(target error) bool { return target == ErrRejected }

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return ReasonNone, false
}

type Phase string

const (
	PhaseLots     Phase = "lots"
	PhaseUnsold   Phase = "unsold"
	PhaseComplete Phase = "complete"
)

// Bid is one accepted raise on the current player.
type Bid struct {
	Team   string          `json:"team"`
	Amount decimal.Decimal `json:"amount"`
}

type Notice struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

type Outcome string

const (
	OutcomeSold   Outcome = "sold"
	OutcomeUnsold Outcome = "unsold" // queued for the unsold round
	OutcomePassed Outcome = "passed" // no bid in the unsold round; gone for good
)

// Resolution describes what ResolveAndAdvance did.
type Resolution struct {
	Player    Player
	Outcome   Outcome
	Team      string
	Price     decimal.Decimal
	FromPhase Phase
	ToPhase   Phase
	LotDone   bool
}

// snapshot holds everything a resolution can change.
type snapshot struct {
	phase     Phase
	lotIdx    int
	playerIdx int
	bid       decimal.Decimal
	leader    string
	history   []Bid
	teams     []TeamRoster
	unsold    []Player
	passed    []Player
}

// Engine is the authoritative auction state. Every exported method runs
// under one mutex so callers never observe a half-applied operation.
type Engine struct {
	mu     sync.Mutex
	rules  Rules
	names  []string
	index  map[string]int
	source Source
	now    func() time.Time

	initialized bool
	catalog     Catalog
	phase       Phase
	lotIdx      int
	playerIdx   int
	unsold      []Player
	passed      []Player
	bid         decimal.Decimal
	leader      string
	history     []Bid
	teams       []TeamRoster
	snapshots   []snapshot
	notice      *Notice
}

type Option func(*Engine)

// WithClock replaces time.Now for notice timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New validates rules and team names. The catalog is not pulled until
// Initialize or Reset.
func New(rules Rules, teams []string, src Source, opts ...Option) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if len(teams) == 0 {
		return nil, errors.New("at least one team is required")
	}
	index := make(map[string]int, len(teams))
	for i, name := range teams {
		if name == "" {
			return nil, errors.New("team names must not be empty")
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate team name %q", name)
		}
		index[name] = i
	}
	if src == nil {
		src = SourceFunc(func() (Catalog, error) { return Catalog{}, nil })
	}
	e := &Engine{
		rules:  rules.clone(),
		names:  slices.Clone(teams),
		index:  index,
		source: src,
		now:    time.Now,
		phase:  PhaseLots,
		bid:    decimal.Zero,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.rebuild(Catalog{})
	return e, nil
}

// Initialize pulls the catalog the first time it is called; later calls
// are no-ops. A load error still leaves a usable (possibly empty) engine.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}
	return e.reload()
}

// Reset discards all state and pulls a fresh catalog from the source.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reload()
}

func (e *Engine) reload() error {
	cat, err := e.source.Load()
	e.rebuild(cat)
	e.initialized = true
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	return nil
}

func (e *Engine) rebuild(cat Catalog) {
	e.catalog = cat.withoutEmptyLots()
	labels := e.catalog.SourceTeams()
	e.teams = make([]TeamRoster, len(e.names))
	for i, name := range e.names {
		e.teams[i] = NewTeamRoster(name, e.rules.Purse, labels)
	}
	e.phase = PhaseLots
	e.lotIdx, e.playerIdx = 0, 0
	e.unsold = nil
	e.passed = nil
	e.clearBid()
	e.snapshots = nil
	e.notice = nil
}

func (e *Engine) Rules() Rules { return e.rules.clone() }

func (e *Engine) Teams() []string { return slices.Clone(e.names) }

func (e *Engine) CurrentPlayer() (Player, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPlayer()
}

func (e *Engine) currentPlayer() (Player, bool) {
	switch e.phase {
	case PhaseLots:
		if e.lotIdx < len(e.catalog.Lots) {
			players := e.catalog.Lots[e.lotIdx].Players
			if e.playerIdx < len(players) {
				return players[e.playerIdx], true
			}
		}
	case PhaseUnsold:
		if e.playerIdx < len(e.unsold) {
			return e.unsold[e.playerIdx], true
		}
	}
	return Player{}, false
}

// PlaceBid raises the bid on the current player for team. With a nil
// amount the next standard step is used; otherwise the explicit amount
// must be at least the base price, within the team's purse and above the
// current bid.
func (e *Engine) PlaceBid(team string, amount *decimal.Decimal) (Bid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.currentPlayer()
	if !ok {
		return Bid{}, ErrNoCurrentPlayer
	}
	i, ok := e.index[team]
	if !ok {
		return Bid{}, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	roster := e.teams[i]

	if allowed, reason := CanBid(e.rules, roster, p, e.leader); !allowed {
		return Bid{}, &RejectionError{Team: team, Reason: reason}
	}

	var next decimal.Decimal
	if amount != nil {
		switch {
		case amount.LessThan(p.BasePrice):
			return Bid{}, &RejectionError{Team: team, Reason: ReasonBelowBasePrice}
		case amount.GreaterThan(roster.Purse):
			return Bid{}, &RejectionError{Team: team, Reason: ReasonExceedsPurse}
		case e.leader != "" && !amount.GreaterThan(e.bid):
			return Bid{}, &RejectionError{Team: team, Reason: ReasonNotAboveCurrent}
		}
		next = *amount
	} else {
		next = e.nextBid(p)
		if next.GreaterThan(roster.Purse) {
			return Bid{}, &RejectionError{Team: team, Reason: ReasonExceedsPurse}
		}
	}

	b := Bid{Team: team, Amount: next}
	e.bid = next
	e.leader = team
	e.history = append(e.history, b)
	return b, nil
}

// nextBid opens at the base price until someone leads, even when the
// base price is zero.
func (e *Engine) nextBid(p Player) decimal.Decimal {
	if e.leader == "" {
		return p.BasePrice
	}
	return e.bid.Add(e.rules.Increment(e.bid))
}

// UndoLastBid pops the most recent raise and restores the one before it.
func (e *Engine) UndoLastBid() (Bid, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 {
		return Bid{}, ErrNoBidHistory
	}
	undone := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	if len(e.history) == 0 {
		e.bid, e.leader = decimal.Zero, ""
	} else {
		top := e.history[len(e.history)-1]
		e.bid, e.leader = top.Amount, top.Team
	}
	return undone, nil
}

// ResolveAndAdvance finalizes the current player (sold to the leader or
// left unsold) and moves the cursor on.
func (e *Engine) ResolveAndAdvance() (Resolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.currentPlayer()
	if !ok {
		return Resolution{}, ErrNoCurrentPlayer
	}
	e.snapshots = append(e.snapshots, e.capture())

	res := Resolution{Player: p, FromPhase: e.phase}
	removed := false
	switch {
	case e.leader != "":
		e.teams[e.index[e.leader]].add(p, e.bid)
		res.Outcome, res.Team, res.Price = OutcomeSold, e.leader, e.bid
		if e.phase == PhaseUnsold {
			e.unsold = slices.Delete(e.unsold, e.playerIdx, e.playerIdx+1)
			removed = true
		}
		e.setNotice("%s sold to %s for %s", p.Name, e.leader, e.bid)
	case e.phase == PhaseLots:
		e.unsold = append(e.unsold, p)
		res.Outcome = OutcomeUnsold
		e.setNotice("%s moved to Unsold List", p.Name)
	default:
		e.unsold = slices.Delete(e.unsold, e.playerIdx, e.playerIdx+1)
		e.passed = append(e.passed, p)
		removed = true
		res.Outcome = OutcomePassed
		e.setNotice("%s goes unsold", p.Name)
	}

	e.clearBid()
	res.LotDone = e.advance(removed)
	res.ToPhase = e.phase
	return res, nil
}

// advance moves the cursor after a resolution and reports whether a lot
// was finished.
func (e *Engine) advance(removed bool) bool {
	switch e.phase {
	case PhaseLots:
		e.playerIdx++
		lotDone := false
		if e.playerIdx >= len(e.catalog.Lots[e.lotIdx].Players) {
			e.lotIdx++
			e.playerIdx = 0
			lotDone = true
		}
		if e.lotIdx >= len(e.catalog.Lots) || e.allTeamsFull() {
			e.enterUnsold()
		}
		return lotDone
	case PhaseUnsold:
		if !removed {
			e.playerIdx++
		}
		if e.playerIdx >= len(e.unsold) {
			e.playerIdx = 0
		}
		e.checkComplete()
	}
	return false
}

func (e *Engine) enterUnsold() {
	e.phase = PhaseUnsold
	e.playerIdx = 0
	e.setNotice("Lots complete. %d players in the Unsold List", len(e.unsold))
	e.checkComplete()
}

// checkComplete ends the auction when the unsold queue is empty, every
// roster is full, or no team could open the bidding on any queued player.
func (e *Engine) checkComplete() {
	if len(e.unsold) > 0 && !e.allTeamsFull() && e.anyTeamCanTake() {
		return
	}
	e.phase = PhaseComplete
	e.playerIdx = 0
	e.setNotice("Auction complete")
}

func (e *Engine) allTeamsFull() bool {
	for _, t := range e.teams {
		if t.Size() < e.rules.SquadSize {
			return false
		}
	}
	return true
}

func (e *Engine) anyTeamCanTake() bool {
	for _, p := range e.unsold {
		for _, t := range e.teams {
			if ok, _ := CanBid(e.rules, t, p, ""); ok {
				return true
			}
		}
	}
	return false
}

// UndoResolution rewinds the engine to just before the most recent
// ResolveAndAdvance.
func (e *Engine) UndoResolution() (Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.snapshots) == 0 {
		return Player{}, ErrNoSnapshot
	}
	s := e.snapshots[len(e.snapshots)-1]
	e.snapshots = e.snapshots[:len(e.snapshots)-1]
	e.restore(s)

	p, _ := e.currentPlayer()
	e.setNotice("%s is back on the block", p.Name)
	return p, nil
}

func (e *Engine) capture() snapshot {
	return snapshot{
		phase:     e.phase,
		lotIdx:    e.lotIdx,
		playerIdx: e.playerIdx,
		bid:       e.bid,
		leader:    e.leader,
		history:   slices.Clone(e.history),
		teams:     cloneTeams(e.teams),
		unsold:    slices.Clone(e.unsold),
		passed:    slices.Clone(e.passed),
	}
}

func (e *Engine) restore(s snapshot) {
	e.phase = s.phase
	e.lotIdx = s.lotIdx
	e.playerIdx = s.playerIdx
	e.bid = s.bid
	e.leader = s.leader
	e.history = s.history
	e.teams = s.teams
	e.unsold = s.unsold
	e.passed = s.passed
}

func cloneTeams(teams []TeamRoster) []TeamRoster {
	out := make([]TeamRoster, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}

func (e *Engine) clearBid() {
	e.bid = decimal.Zero
	e.leader = ""
	e.history = nil
}

func (e *Engine) setNotice(format string, args ...any) {
	e.notice = &Notice{Text: fmt.Sprintf(format, args...), At: e.now()}
}

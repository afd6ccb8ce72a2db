package engine

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// State is a settled, deep-copied read of the engine. Catalog lots are
// shared because the engine never writes to them.
type State struct {
	Rules       Rules
	Phase       Phase
	Catalog     Catalog
	LotIndex    int
	PlayerIndex int
	Current     *Player
	Bid         decimal.Decimal
	Leader      string
	History     []Bid
	Teams       []TeamRoster
	Unsold      []Player
	Passed      []Player
	Notice      *Notice
	UndoDepth   int
}

// State returns a copy of everything a viewer may need, taken under the
// engine lock.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		Rules:       e.rules.clone(),
		Phase:       e.phase,
		Catalog:     e.catalog,
		LotIndex:    e.lotIdx,
		PlayerIndex: e.playerIdx,
		Bid:         e.bid,
		Leader:      e.leader,
		History:     slices.Clone(e.history),
		Teams:       cloneTeams(e.teams),
		Unsold:      slices.Clone(e.unsold),
		Passed:      slices.Clone(e.passed),
		UndoDepth:   len(e.snapshots),
	}
	if p, ok := e.currentPlayer(); ok {
		s.Current = &p
	}
	if e.notice != nil {
		n := *e.notice
		s.Notice = &n
	}
	return s
}

// Team looks up a roster by name.
func (s State) Team(name string) (TeamRoster, bool) {
	for _, t := range s.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return TeamRoster{}, false
}

// NextBid is the amount a standard raise would set on the current player.
func (s State) NextBid() (decimal.Decimal, bool) {
	if s.Current == nil {
		return decimal.Zero, false
	}
	if s.Leader == "" {
		return s.Current.BasePrice, true
	}
	return s.Bid.Add(s.Rules.Increment(s.Bid)), true
}

// ExportRow is one sold player in a flat export.
type ExportRow struct {
	Team        string          `json:"team"`
	Name        string          `json:"name"`
	Role        Role            `json:"role"`
	SourceTeam  string          `json:"source_team"`
	Nationality Nationality     `json:"nationality"`
	Uncapped    bool            `json:"uncapped"`
	Price       decimal.Decimal `json:"price"`
}

// Export lists sold players for team, or for every team when team is "".
func (e *Engine) Export(team string) ([]ExportRow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if team != "" {
		if _, ok := e.index[team]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTeam, team)
		}
	}
	rows := []ExportRow{}
	for _, t := range e.teams {
		if team != "" && t.Name != team {
			continue
		}
		for _, p := range t.Players {
			rows = append(rows, ExportRow{
				Team:        t.Name,
				Name:        p.Name,
				Role:        p.Role,
				SourceTeam:  p.SourceTeam,
				Nationality: p.Nationality,
				Uncapped:    p.Uncapped,
				Price:       p.Price,
			})
		}
	}
	return rows, nil
}

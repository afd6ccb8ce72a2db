package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// AcquiredPlayer is a player on a team sheet together with the hammer price.
type AcquiredPlayer struct {
	Player
	Price decimal.Decimal `json:"price"`
}

// TeamRoster is the ledger of one bidding team. Spent, Purse, Overseas,
// Uncapped and SourceCounts are denormalized from Players.
type TeamRoster struct {
	Name         string           `json:"name"`
	Players      []AcquiredPlayer `json:"players"`
	Spent        decimal.Decimal  `json:"spent"`
	Purse        decimal.Decimal  `json:"purse"`
	Overseas     int              `json:"overseas"`
	Uncapped     int              `json:"uncapped"`
	SourceCounts map[string]int   `json:"source_counts"`
}

// NewTeamRoster builds an empty roster with a zeroed counter for every
// known source-team label.
func NewTeamRoster(name string, purse decimal.Decimal, sourceTeams []string) TeamRoster {
	counts := make(map[string]int, len(sourceTeams))
	for _, s := range sourceTeams {
		counts[s] = 0
	}
	return TeamRoster{
		Name:         name,
		Players:      []AcquiredPlayer{},
		Spent:        decimal.Zero,
		Purse:        purse,
		SourceCounts: counts,
	}
}

// SourceCount returns how many players t holds from label. Unknown
// labels count as zero.
func (t TeamRoster) SourceCount(label string) int {
	return t.SourceCounts[label]
}

func (t TeamRoster) Size() int { return len(t.Players) }

// Remaining is the number of open slots under squadSize.
func (t TeamRoster) Remaining(squadSize int) int {
	return max(0, squadSize-len(t.Players))
}

func (t TeamRoster) RoleCounts() map[Role]int {
	counts := make(map[Role]int, len(Roles))
	for _, r := range Roles {
		counts[r] = 0
	}
	for _, p := range t.Players {
		counts[p.Role]++
	}
	return counts
}

func (t *TeamRoster) add(p Player, price decimal.Decimal) {
	t.Players = append(t.Players, AcquiredPlayer{Player: p, Price: price})
	t.Spent = t.Spent.Add(price)
	t.Purse = t.Purse.Sub(price)
	if p.IsOverseas() {
		t.Overseas++
	}
	if p.Uncapped {
		t.Uncapped++
	}
	if t.SourceCounts == nil {
		t.SourceCounts = map[string]int{}
	}
	t.SourceCounts[p.SourceTeam]++
}

// Clone returns a copy that shares no mutable storage with t.
func (t TeamRoster) Clone() TeamRoster {
	c := t
	c.Players = slices.Clone(t.Players)
	if c.Players == nil {
		c.Players = []AcquiredPlayer{}
	}
	c.SourceCounts = maps.Clone(t.SourceCounts)
	return c
}

// Verify recomputes every counter from Players and reports any drift,
// plus violations of the purse and squad-size invariants.
func (t TeamRoster) Verify(initialPurse decimal.Decimal, squadSize int) error {
	var err error
	spent := decimal.Zero
	overseas, uncapped := 0, 0
	sources := map[string]int{}
	for _, p := range t.Players {
		spent = spent.Add(p.Price)
		if p.IsOverseas() {
			overseas++
		}
		if p.Uncapped {
			uncapped++
		}
		sources[p.SourceTeam]++
	}
	if !spent.Equal(t.Spent) {
		err = multierr.Append(err, fmt.Errorf("%s: spent %s, players sum to %s", t.Name, t.Spent, spent))
	}
	if !t.Spent.Add(t.Purse).Equal(initialPurse) {
		err = multierr.Append(err, fmt.Errorf("%s: spent %s + purse %s != %s", t.Name, t.Spent, t.Purse, initialPurse))
	}
	if len(t.Players) > squadSize {
		err = multierr.Append(err, fmt.Errorf("%s: %d players exceeds squad size %d", t.Name, len(t.Players), squadSize))
	}
	if overseas != t.Overseas {
		err = multierr.Append(err, fmt.Errorf("%s: overseas %d, players have %d", t.Name, t.Overseas, overseas))
	}
	if uncapped != t.Uncapped {
		err = multierr.Append(err, fmt.Errorf("%s: uncapped %d, players have %d", t.Name, t.Uncapped, uncapped))
	}
	for label, n := range sources {
		if t.SourceCounts[label] != n {
			err = multierr.Append(err, fmt.Errorf("%s: source %q count %d, players have %d", t.Name, label, t.SourceCounts[label], n))
		}
	}
	for label, n := range t.SourceCounts {
		if _, seen := sources[label]; !seen && n != 0 {
			err = multierr.Append(err, fmt.Errorf("%s: source %q count %d, players have 0", t.Name, label, n))
		}
	}
	return err
}

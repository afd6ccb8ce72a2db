package engine

import (
	"slices"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBatter       Role = "Bat"
	RoleBowler       Role = "Bowl"
	RoleAllRounder   Role = "AR"
	RoleWicketKeeper Role = "WK"
)

// Roles lists every role in display order.
var Roles = []Role{RoleBatter, RoleBowler, RoleAllRounder, RoleWicketKeeper}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

type Nationality string

const (
	Domestic Nationality = "Domestic"
	Overseas Nationality = "Overseas"
)

// Player is one row of the catalog. Lot and Position identify it.
type Player struct {
	Name        string          `json:"name"`
	Role        Role            `json:"role"`
	SourceTeam  string          `json:"source_team"`
	Nationality Nationality     `json:"nationality"`
	Uncapped    bool            `json:"uncapped"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Lot         int             `json:"lot"`
	Position    int             `json:"position"`
}

func (p Player) IsOverseas() bool { return p.Nationality == Overseas }

// SameAs reports whether p and o are the same catalog entry.
func (p Player) SameAs(o Player) bool {
	return p.Lot == o.Lot && p.Position == o.Position && p.Name == o.Name
}

type Lot struct {
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// Catalog is the ordered set of lots. The engine never mutates it.
type Catalog struct {
	Lots []Lot
}

// SourceTeams returns every distinct source-team label, sorted.
func (c Catalog) SourceTeams() []string {
	seen := map[string]bool{}
	var out []string
	for _, lot := range c.Lots {
		for _, p := range lot.Players {
			if !seen[p.SourceTeam] {
				seen[p.SourceTeam] = true
				out = append(out, p.SourceTeam)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (c Catalog) PlayerCount() int {
	n := 0
	for _, lot := range c.Lots {
		n += len(lot.Players)
	}
	return n
}

// withoutEmptyLots drops lots that have no players and renumbers the
// survivors so Player.Lot matches the lot index.
func (c Catalog) withoutEmptyLots() Catalog {
	out := Catalog{}
	for _, lot := range c.Lots {
		if len(lot.Players) == 0 {
			continue
		}
		idx := len(out.Lots)
		players := make([]Player, len(lot.Players))
		for i, p := range lot.Players {
			p.Lot = idx
			p.Position = i
			players[i] = p
		}
		out.Lots = append(out.Lots, Lot{Name: lot.Name, Players: players})
	}
	return out
}

// Source supplies a freshly loaded (and shuffled) catalog.
type Source interface {
	Load() (Catalog, error)
}

type SourceFunc func() (Catalog, error)

func (f SourceFunc) Load() (Catalog, error) { return f() }

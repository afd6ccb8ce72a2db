package engine

import (
	"errors"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// IncrementTier applies Step to any bid strictly below Below.
type IncrementTier struct {
	Below decimal.Decimal
	Step  decimal.Decimal
}

// Rules are the roster quotas and bidding steps of one auction.
type Rules struct {
	SquadSize        int
	Purse            decimal.Decimal
	OverseasCap      int
	SourceTeamCap    int
	RoleMinimums     map[Role]int
	UncappedMinimum  int
	UncappedWarnAt   int // remaining slots at which a missing uncapped pick is flagged
	Increments       []IncrementTier
	DefaultIncrement decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		SquadSize:     15,
		Purse:         decimal.NewFromInt(120),
		OverseasCap:   6,
		SourceTeamCap: 4,
		RoleMinimums: map[Role]int{
			RoleBatter:       4,
			RoleBowler:       4,
			RoleAllRounder:   2,
			RoleWicketKeeper: 1,
		},
		UncappedMinimum: 1,
		UncappedWarnAt:  3,
		Increments: []IncrementTier{
			{Below: decimal.NewFromInt(8), Step: decimal.NewFromFloat(0.5)},
		},
		DefaultIncrement: decimal.NewFromInt(1),
	}
}

// Increment returns the raise applied on top of bid. Tiers are checked
// in order and the first match wins.
func (r Rules) Increment(bid decimal.Decimal) decimal.Decimal {
	for _, t := range r.Increments {
		if bid.LessThan(t.Below) {
			return t.Step
		}
	}
	return r.DefaultIncrement
}

// MinimumSlots is the number of roster slots the role and uncapped
// minimums need on an empty squad.
func (r Rules) MinimumSlots() int {
	n := r.UncappedMinimum
	for _, m := range r.RoleMinimums {
		n += m
	}
	return n
}

func (r Rules) Validate() error {
	var err error
	if r.SquadSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("squad size must be positive, got %d", r.SquadSize))
	}
	if !r.Purse.IsPositive() {
		err = multierr.Append(err, fmt.Errorf("purse must be positive, got %s", r.Purse))
	}
	if r.OverseasCap < 0 {
		err = multierr.Append(err, errors.New("overseas cap must not be negative"))
	}
	if r.SourceTeamCap <= 0 {
		err = multierr.Append(err, fmt.Errorf("source team cap must be positive, got %d", r.SourceTeamCap))
	}
	for role, m := range r.RoleMinimums {
		if !role.Valid() {
			err = multierr.Append(err, fmt.Errorf("unknown role %q in minimums", role))
		}
		if m < 0 {
			err = multierr.Append(err, fmt.Errorf("minimum for %s must not be negative", role))
		}
	}
	if r.UncappedMinimum < 0 {
		err = multierr.Append(err, errors.New("uncapped minimum must not be negative"))
	}
	if r.SquadSize > 0 && r.MinimumSlots() > r.SquadSize {
		err = multierr.Append(err, fmt.Errorf("minimums need %d slots but squad size is %d", r.MinimumSlots(), r.SquadSize))
	}
	if !r.DefaultIncrement.IsPositive() {
		err = multierr.Append(err, errors.New("default increment must be positive"))
	}
	for i, t := range r.Increments {
		if !t.Step.IsPositive() {
			err = multierr.Append(err, fmt.Errorf("increment tier %d: step must be positive", i))
		}
	}
	return err
}

func (r Rules) clone() Rules {
	c := r
	c.RoleMinimums = maps.Clone(r.RoleMinimums)
	c.Increments = append([]IncrementTier(nil), r.Increments...)
	return c
}

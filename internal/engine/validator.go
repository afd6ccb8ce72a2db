package engine

import (
	"fmt"
	"slices"
)

// Reason names why a bid was refused. The zero value means allowed.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonInsufficientPurse     Reason = "insufficient_purse"
	ReasonAlreadyLeading        Reason = "already_leading"
	ReasonSquadFull             Reason = "squad_full"
	ReasonOverseasFull          Reason = "overseas_full"
	ReasonSourceQuotaFull       Reason = "source_quota_full"
	ReasonMustFillUncapped      Reason = "must_fill_uncapped"
	ReasonCombinationInfeasible Reason = "combination_infeasible"
	ReasonBelowBasePrice        Reason = "below_base_price"
	ReasonExceedsPurse          Reason = "exceeds_purse"
	ReasonNotAboveCurrent       Reason = "not_above_current"
)

var reasonText = map[Reason]string{
	ReasonInsufficientPurse:     "Insufficient Purse",
	ReasonAlreadyLeading:        "Already highest bidder",
	ReasonSquadFull:             "Squad Full",
	ReasonOverseasFull:          "Overseas Full",
	ReasonSourceQuotaFull:       "Source Team Quota Full",
	ReasonMustFillUncapped:      "Fill Uncapped Quota",
	ReasonCombinationInfeasible: "Role minimums can no longer be met",
	ReasonBelowBasePrice:        "Bid is below base price",
	ReasonExceedsPurse:          "Bid exceeds remaining purse",
	ReasonNotAboveCurrent:       "Bid must be above the current bid",
}

// Message is the human-readable text shown to the auctioneer.
func (r Reason) Message() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return string(r)
}

// CanBid decides whether team may raise on p while leader holds the bid.
// Checks run in a fixed order and the first failure wins.
func CanBid(rules Rules, team TeamRoster, p Player, leader string) (bool, Reason) {
	if team.Purse.LessThan(p.BasePrice) {
		return false, ReasonInsufficientPurse
	}
	if leader == team.Name {
		return false, ReasonAlreadyLeading
	}
	if team.Size() >= rules.SquadSize {
		return false, ReasonSquadFull
	}
	if p.IsOverseas() && team.Overseas >= rules.OverseasCap {
		return false, ReasonOverseasFull
	}
	if team.SourceCount(p.SourceTeam) >= rules.SourceTeamCap {
		return false, ReasonSourceQuotaFull
	}

	remaining := rules.SquadSize - team.Size()
	uncappedShort := max(0, rules.UncappedMinimum-team.Uncapped)
	if remaining <= uncappedShort && !p.Uncapped {
		return false, ReasonMustFillUncapped
	}

	counts := team.RoleCounts()
	counts[p.Role]++
	uncapped := team.Uncapped
	if p.Uncapped {
		uncapped++
	}
	if MinStillNeeded(rules, counts, uncapped) > remaining-1 {
		return false, ReasonCombinationInfeasible
	}
	return true, ReasonNone
}

// MinStillNeeded is the number of slots still required to reach every
// role minimum and the uncapped minimum from the given counts.
func MinStillNeeded(rules Rules, counts map[Role]int, uncapped int) int {
	need := 0
	for role, m := range rules.RoleMinimums {
		need += max(0, m-counts[role])
	}
	return need + max(0, rules.UncappedMinimum-uncapped)
}

type WarningCode string

const (
	WarnOverseasNearCap WarningCode = "overseas_near_cap"
	WarnOverseasFull    WarningCode = "overseas_full"
	WarnSourceNearCap   WarningCode = "source_near_cap"
	WarnSourceFull      WarningCode = "source_full"
	WarnUncappedMissing WarningCode = "uncapped_missing"
	WarnMustFillOnly    WarningCode = "must_fill_only"
	WarnTight           WarningCode = "tight"
	WarnImpossible      WarningCode = "impossible"
)

type Warning struct {
	Code   WarningCode `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

// Warnings reports advisory roster-health flags for team. They do not
// block bids and are recomputed on every call.
func Warnings(rules Rules, team TeamRoster) []Warning {
	var out []Warning

	switch {
	case team.Overseas >= rules.OverseasCap:
		out = append(out, Warning{Code: WarnOverseasFull, Detail: fmt.Sprintf("%d/%d overseas", team.Overseas, rules.OverseasCap)})
	case team.Overseas == rules.OverseasCap-1:
		out = append(out, Warning{Code: WarnOverseasNearCap, Detail: fmt.Sprintf("%d/%d overseas", team.Overseas, rules.OverseasCap)})
	}

	labels := make([]string, 0, len(team.SourceCounts))
	for label := range team.SourceCounts {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	for _, label := range labels {
		n := team.SourceCounts[label]
		switch {
		case n >= rules.SourceTeamCap:
			out = append(out, Warning{Code: WarnSourceFull, Detail: fmt.Sprintf("%s %d/%d", label, n, rules.SourceTeamCap)})
		case n == rules.SourceTeamCap-1 && n > 0:
			out = append(out, Warning{Code: WarnSourceNearCap, Detail: fmt.Sprintf("%s %d/%d", label, n, rules.SourceTeamCap)})
		}
	}

	remaining := team.Remaining(rules.SquadSize)
	if team.Uncapped < rules.UncappedMinimum && remaining <= rules.UncappedWarnAt {
		out = append(out, Warning{Code: WarnUncappedMissing, Detail: fmt.Sprintf("%d slots left", remaining)})
	}

	need := MinStillNeeded(rules, team.RoleCounts(), team.Uncapped)
	if need > 0 {
		detail := fmt.Sprintf("need %d of %d slots", need, remaining)
		switch {
		case need > remaining:
			out = append(out, Warning{Code: WarnImpossible, Detail: detail})
		case need == remaining:
			out = append(out, Warning{Code: WarnMustFillOnly, Detail: detail})
		case need == remaining-1:
			out = append(out, Warning{Code: WarnTight, Detail: detail})
		}
	}
	return out
}

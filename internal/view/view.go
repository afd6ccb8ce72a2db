// Package view turns a settled engine state into the payload broadcast
// to every viewer. It only reads.
package view

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
)

type View struct {
	Phase             engine.Phase     `json:"phase"`
	Player            *engine.Player   `json:"player"`
	CurrentBid        decimal.Decimal  `json:"current_bid"`
	NextBid           *decimal.Decimal `json:"next_bid,omitempty"`
	Leader            string           `json:"leader,omitempty"`
	BidCount          int              `json:"bid_count"`
	Teams             []TeamSummary    `json:"teams"`
	LotInfo           string           `json:"lot_info"`
	Progress          string           `json:"progress"`
	Unsold            UnsoldInfo       `json:"unsold"`
	Message           string           `json:"ui_message,omitempty"`
	MessageTime       *time.Time       `json:"ui_message_time,omitempty"`
	CanUndoBid        bool             `json:"can_undo_bid"`
	CanUndoResolution bool             `json:"can_undo_resolution"`
}

type TeamSummary struct {
	Name      string              `json:"name"`
	Players   int                 `json:"players"`
	Spent     decimal.Decimal     `json:"spent"`
	Purse     decimal.Decimal     `json:"purse"`
	Overseas  int                 `json:"overseas"`
	Uncapped  int                 `json:"uncapped"`
	Roles     map[engine.Role]int `json:"roles"`
	IsLeader  bool                `json:"is_leader"`
	CanBid    bool                `json:"can_bid"`
	Blocked   engine.Reason       `json:"blocked,omitempty"`
	BlockText string              `json:"blocked_text,omitempty"`
	Warnings  []engine.Warning    `json:"warnings"`
}

type UnsoldInfo struct {
	Size     int `json:"size"`
	Position int `json:"position"` // 1-based while the unsold round runs, else 0
	Passed   int `json:"passed"`
}

// Project builds the broadcast payload for s.
func Project(s engine.State) View {
	v := View{
		Phase:             s.Phase,
		Player:            s.Current,
		CurrentBid:        s.Bid,
		Leader:            s.Leader,
		BidCount:          len(s.History),
		Teams:             make([]TeamSummary, 0, len(s.Teams)),
		Unsold:            UnsoldInfo{Size: len(s.Unsold), Passed: len(s.Passed)},
		CanUndoBid:        len(s.History) > 0,
		CanUndoResolution: s.UndoDepth > 0,
	}
	if next, ok := s.NextBid(); ok {
		v.NextBid = &next
	}
	if s.Notice != nil {
		v.Message = s.Notice.Text
		at := s.Notice.At
		v.MessageTime = &at
	}

	for _, t := range s.Teams {
		sum := TeamSummary{
			Name:     t.Name,
			Players:  t.Size(),
			Spent:    t.Spent,
			Purse:    t.Purse,
			Overseas: t.Overseas,
			Uncapped: t.Uncapped,
			Roles:    t.RoleCounts(),
			IsLeader: s.Leader == t.Name,
			Warnings: engine.Warnings(s.Rules, t),
		}
		if sum.Warnings == nil {
			sum.Warnings = []engine.Warning{}
		}
		if s.Current != nil {
			ok, reason := engine.CanBid(s.Rules, t, *s.Current, s.Leader)
			sum.CanBid = ok
			if !ok {
				sum.Blocked = reason
				sum.BlockText = reason.Message()
			}
		}
		v.Teams = append(v.Teams, sum)
	}

	v.LotInfo, v.Progress = progress(s)
	if s.Phase == engine.PhaseUnsold && s.Current != nil {
		v.Unsold.Position = s.PlayerIndex + 1
	}
	return v
}

func progress(s engine.State) (string, string) {
	switch s.Phase {
	case engine.PhaseLots:
		lots := s.Catalog.Lots
		if len(lots) == 0 {
			return "No lots loaded", ""
		}
		idx := min(s.LotIndex, len(lots)-1)
		lot := lots[idx]
		return fmt.Sprintf("Lot %d of %d: %s", idx+1, len(lots), lot.Name),
			fmt.Sprintf("Player %d of %d", min(s.PlayerIndex+1, len(lot.Players)), len(lot.Players))
	case engine.PhaseUnsold:
		if len(s.Unsold) == 0 {
			return "Unsold round", ""
		}
		return "Unsold round", fmt.Sprintf("Player %d of %d", s.PlayerIndex+1, len(s.Unsold))
	default:
		return "Auction complete", fmt.Sprintf("%d sold, %d unsold", soldCount(s), len(s.Unsold)+len(s.Passed))
	}
}

func soldCount(s engine.State) int {
	n := 0
	for _, t := range s.Teams {
		n += t.Size()
	}
	return n
}

package engine

import "github.com/shopspring/decimal"

type CommandType string

const (
	CmdPlaceBid       CommandType = "PlaceBid"
	CmdUndoBid        CommandType = "UndoBid"
	CmdNextPlayer     CommandType = "NextPlayer"
	CmdUndoNextPlayer CommandType = "UndoNextPlayer"
	CmdReset          CommandType = "Reset"
)

/*
	CmdPlaceBid       -> EvtBidPlaced
	CmdUndoBid        -> EvtBidUndone
	CmdNextPlayer     -> EvtPlayerSold | EvtPlayerUnsold | EvtPlayerPassed
	                     -> EvtLotCompleted? -> EvtPhaseChanged? -> EvtAuctionCompleted?
	CmdUndoNextPlayer -> EvtResolutionUndone
	CmdReset          -> EvtAuctionReset
*/

type Command struct {
	Type   CommandType
	Team   string
	Amount *decimal.Decimal // optional explicit bid
}

type EventType string

const (
	EvtBidPlaced        EventType = "BidPlaced"
	EvtBidUndone        EventType = "BidUndone"
	EvtPlayerSold       EventType = "PlayerSold"
	EvtPlayerUnsold     EventType = "PlayerUnsold"
	EvtPlayerPassed     EventType = "PlayerPassed"
	EvtLotCompleted     EventType = "LotCompleted"
	EvtPhaseChanged     EventType = "PhaseChanged"
	EvtAuctionCompleted EventType = "AuctionCompleted"
	EvtResolutionUndone EventType = "ResolutionUndone"
	EvtAuctionReset     EventType = "AuctionReset"
)

type Event struct {
	Type   EventType
	Team   string
	Player string
	Amount decimal.Decimal
	Phase  Phase
}

// Apply runs cmd against the engine and describes what changed. A non-nil
// error means nothing changed, except for CmdReset where a load error is
// reported after the engine has been rebuilt on whatever was loaded.
func (e *Engine) Apply(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdPlaceBid:
		b, err := e.PlaceBid(cmd.Team, cmd.Amount)
		if err != nil {
			return nil, err
		}
		return []Event{{Type: EvtBidPlaced, Team: b.Team, Amount: b.Amount}}, nil

	case CmdUndoBid:
		b, err := e.UndoLastBid()
		if err != nil {
			return nil, err
		}
		return []Event{{Type: EvtBidUndone, Team: b.Team, Amount: b.Amount}}, nil

	case CmdNextPlayer:
		res, err := e.ResolveAndAdvance()
		if err != nil {
			return nil, err
		}
		return resolutionEvents(res), nil

	case CmdUndoNextPlayer:
		p, err := e.UndoResolution()
		if err != nil {
			return nil, err
		}
		return []Event{{Type: EvtResolutionUndone, Player: p.Name}}, nil

	case CmdReset:
		err := e.Reset()
		return []Event{{Type: EvtAuctionReset, Phase: PhaseLots}}, err

	default:
		return nil, ErrUnsupportedCommand
	}
}

func resolutionEvents(res Resolution) []Event {
	var events []Event
	switch res.Outcome {
	case OutcomeSold:
		events = append(events, Event{Type: EvtPlayerSold, Team: res.Team, Player: res.Player.Name, Amount: res.Price})
	case OutcomeUnsold:
		events = append(events, Event{Type: EvtPlayerUnsold, Player: res.Player.Name})
	case OutcomePassed:
		events = append(events, Event{Type: EvtPlayerPassed, Player: res.Player.Name})
	}
	if res.LotDone {
		events = append(events, Event{Type: EvtLotCompleted})
	}
	if res.ToPhase != res.FromPhase {
		if res.FromPhase == PhaseLots {
			events = append(events, Event{Type: EvtPhaseChanged, Phase: PhaseUnsold})
		}
		if res.ToPhase == PhaseComplete {
			events = append(events, Event{Type: EvtAuctionCompleted, Phase: PhaseComplete})
		}
	}
	return events
}

// ContainsEvent reports whether events has one of the given type.
func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

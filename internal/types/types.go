package types

import (
	"github.com/shopspring/decimal"

	"github.com/DoyleJ11/auction-draft-backend/internal/view"
)

// Client message types.
const (
	MsgPlaceBid       = "place_bid"
	MsgUndoBid        = "undo_bid"
	MsgNextPlayer     = "next_player"
	MsgUndoNextPlayer = "undo_next_player"
	MsgResetAuction   = "reset_auction"
	MsgVerify         = "verify"
)

// Server message types.
const (
	MsgAuctionUpdate = "auction_update"
	MsgError         = "error"
	MsgNotice        = "notice"
)

type ClientMessage struct {
	Type   string           `json:"type"`
	Team   string           `json:"team,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Secret string           `json:"secret,omitempty"`
}

type ServerMessage struct {
	Type    string     `json:"type"` // "auction_update" | "error" | "notice"
	Version int        `json:"version,omitempty"`
	Viewers int        `json:"viewers,omitempty"`
	State   *view.View `json:"state,omitempty"`
	Error   string     `json:"error,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	Notice  string     `json:"notice,omitempty"`
}

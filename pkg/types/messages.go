package types

// Connect: GET /ws?role=auctioneer | /ws?role=viewer
// Anything other than "auctioneer" joins as a viewer.
//
// Client -> Server
// verify:
//   secret: string           // claims the auctioneer seat
//
// place_bid:
//   team: string
//   amount?: string | number // omit for the standard step
//
// undo_bid: {}
// next_player: {}            // sell to the leader, or pass the player on
// undo_next_player: {}       // back to just before the last next_player
// reset_auction: {}          // reloads and reshuffles the workbook
//
// Only the verified auctioneer may send the mutating messages; everyone
// else gets an error "Only auctioneer can ...".

// Server -> Client
// auction_update:
//   version: number          // bumps on every state change
//   viewers: number          // connected sessions
//   state:
//     phase: "lots" | "unsold" | "complete"
//     player: Player | null
//     current_bid: string
//     next_bid?: string
//     leader?: string
//     bid_count: number
//     lot_info: string       // "Lot 2 of 5: Capped Batters"
//     progress: string       // "Player 3 of 12"
//     unsold: { size, position, passed }
//     ui_message?: string
//     ui_message_time?: RFC 3339 timestamp
//     can_undo_bid: boolean
//     can_undo_resolution: boolean
//     teams: [{
//       name, players, spent, purse, overseas, uncapped,
//       roles: { Bat, Bowl, AR, WK },
//       is_leader, can_bid,
//       blocked?: reason code, blocked_text?: string,
//       warnings: [{ code, detail }]
//     }]
//
// error:
//   error: string
//   reason?: "insufficient_purse" | "already_leading" | "squad_full" |
//            "overseas_full" | "source_quota_full" | "must_fill_uncapped" |
//            "combination_infeasible" | "below_base_price" |
//            "exceeds_purse" | "not_above_current" | "not_verified"
//
// notice:
//   notice: string
//
// Player: { name, role, source_team, nationality, uncapped, base_price, lot, position }
// Money values are decimal strings ("2", "7.5").

// HTTP
// GET /healthz                -> { status, sessions }
// GET /api/state              -> auction_update
// GET /api/export.csv         -> every sold player
// GET /api/export/{team}.csv  -> one team's roster

package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a registered game. New kinds must register a full
// validator / generator / evaluator / paytable set before sessions can open.
type Kind string

const (
	KindRouletteEuropean Kind = "roulette_european"
	KindRouletteAmerican Kind = "roulette_american"
	KindBaccarat         Kind = "baccarat"
	KindDragonTiger      Kind = "dragon_tiger"
	KindSlotClassic      Kind = "slot_classic"
	KindBingo75          Kind = "bingo_75"
	KindKeno             Kind = "keno"
)

// SessionStatus is the lifecycle state of a session. Transitions are
// linear: Open -> Locked -> Settled, or Open/Locked -> Voided.
type SessionStatus string

const (
	SessionOpen    SessionStatus = "open"
	SessionLocked  SessionStatus = "locked"
	SessionSettled SessionStatus = "settled"
	SessionVoided  SessionStatus = "voided"
)

// BetStatus is the resolution state of a single bet.
type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
	BetPush    BetStatus = "push"
	BetVoid    BetStatus = "void"
)

// BetKind is the game-specific tag naming what a bet is on. The closed
// set per game lives with that game's validator.
type BetKind string

// Selection is the structured value accompanying a bet kind. Which fields
// are meaningful depends on the kind: roulette multi-number bets and keno
// spots use Numbers, slot line bets use Line, bingo bets carry a Card.
// Even-money roulette kinds and all baccarat / dragon-tiger kinds take an
// empty selection.
type Selection struct {
	Numbers []int      `json:"numbers,omitempty"`
	Line    int        `json:"line,omitempty"`
	Card    *BingoCard `json:"card,omitempty"`
}

// BingoCard is a 5x5 card in row-major order. Column c holds numbers in
// [15c+1, 15c+15]; the center cell is the FREE spot and must be zero.
type BingoCard struct {
	Cells [25]int `json:"cells"`
}

// Bet is a single accepted wager inside a session.
type Bet struct {
	ID         string          `json:"id"`
	Kind       BetKind         `json:"kind"`
	Selection  Selection       `json:"selection"`
	Stake      decimal.Decimal `json:"stake"`
	AcceptedAt time.Time       `json:"accepted_at"`
	Status     BetStatus       `json:"status"`
	WinAmount  decimal.Decimal `json:"win_amount"`
}

// Bounds are the monetary limits enforced while a session accepts bets.
type Bounds struct {
	MinBet      decimal.Decimal `json:"min_bet"`
	MaxBet      decimal.Decimal `json:"max_bet"`
	MaxExposure decimal.Decimal `json:"max_exposure"`
}

// Config carries the per-session game configuration. Zero values fall
// back to the registered defaults for the session's kind.
type Config struct {
	// Precision is the number of fractional digits for monetary rounding:
	// 2 for credits, 6 for on-chain USDT.
	Precision int32 `json:"precision"`

	// TieGross is the dragon-tiger tie payout multiplier (gross, stake
	// included). Product default is 9; the 11 variant is per session.
	TieGross decimal.Decimal `json:"tie_gross,omitempty"`

	// Slot holds reel strips, paylines and the line paytable. Required
	// for slot sessions; ignored elsewhere.
	Slot *SlotConfig `json:"slot,omitempty"`

	// BingoMaxBalls caps the bingo draw; 0 plays the full 75 balls.
	BingoMaxBalls int `json:"bingo_max_balls,omitempty"`
}

// Session is a single round of play: bets are collected while Open,
// frozen at Lock, and resolved exactly once at Settle.
type Session struct {
	ID             string          `json:"id"`
	Kind           Kind            `json:"kind"`
	Owner          string          `json:"owner"`
	Config         Config          `json:"config"`
	Bounds         Bounds          `json:"bounds"`
	Status         SessionStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	SettledAt      *time.Time      `json:"settled_at,omitempty"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ServerSeed     string          `json:"server_seed,omitempty"` // empty until reveal
	ClientSeed     string          `json:"client_seed,omitempty"`
	Nonce          uint64          `json:"nonce"`
	TestMode       bool            `json:"test_mode,omitempty"`
	Bets           []*Bet          `json:"bets"`
	Exposure       decimal.Decimal `json:"exposure"`
	VoidReason     string          `json:"void_reason,omitempty"`
}

// Card is a playing card. Rank runs 1 (ace) to 13 (king); Suit 0..3 in
// club, diamond, heart, spade order.
type Card struct {
	Rank int `json:"rank"`
	Suit int `json:"suit"`
}

// Outcome is the immutable result of a round, derived solely from the
// revealed seeds and nonce. Only the fields for the outcome's kind are set.
type Outcome struct {
	Kind Kind `json:"kind"`

	// Roulette: the winning pocket. 0..36, with 37 encoding 00 on
	// American wheels.
	Pocket int `json:"pocket,omitempty"`

	// Baccarat hands in dealt order, including any third card.
	Player []Card `json:"player,omitempty"`
	Banker []Card `json:"banker,omitempty"`

	// Dragon-tiger single cards.
	Dragon *Card `json:"dragon,omitempty"`
	Tiger  *Card `json:"tiger,omitempty"`

	// Slot: stop index per reel, the visible 3-row window (window[row][reel])
	// and whether the bonus was triggered.
	Stops  []int      `json:"stops,omitempty"`
	Window [][]Symbol `json:"window,omitempty"`
	Bonus  bool       `json:"bonus,omitempty"`

	// Bingo: the full ball draw order over 1..75.
	Balls []int `json:"balls,omitempty"`

	// Keno: the 20 drawn numbers over 1..80, in draw order.
	Draw []int `json:"draw,omitempty"`
}

// Proof is the published fairness proof. Anyone holding it can recompute
// the commitment and the outcome.
type Proof struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
	Algorithm      string `json:"algorithm"`
}

// Totals aggregates a settlement's money movement. TotalPayout includes
// refunded stakes of voided bets; Commission is the house take withheld
// from winning bets' profit.
type Totals struct {
	TotalStake  decimal.Decimal `json:"total_stake"`
	TotalPayout decimal.Decimal `json:"total_payout"`
	Net         decimal.Decimal `json:"net"`
	Commission  decimal.Decimal `json:"commission"`
}

// Settlement is the terminal artifact of a session: the outcome, every
// bet resolved in acceptance order, the totals and the fairness proof.
// Its JSON layout is the wire format external systems persist and audit;
// monetary fields encode as decimal strings.
type Settlement struct {
	SessionID string    `json:"session_id"`
	Kind      Kind      `json:"kind"`
	Config    Config    `json:"config"`
	Outcome   *Outcome  `json:"outcome"`
	Bets      []*Bet    `json:"bets"`
	Totals    Totals    `json:"totals"`
	Proof     Proof     `json:"proof"`
	Forced    bool      `json:"forced,omitempty"` // test-mode forced outcome, kept for audit
	SettledAt time.Time `json:"settled_at"`
}

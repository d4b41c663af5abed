package game

import (
	"github.com/shopspring/decimal"
)

// module bundles the rules quadruple a game registers: bet validation,
// outcome generation and settlement evaluation over its paytable.
// Generators and evaluators are pure; nothing here touches the clock,
// balances or any state outside the arguments.
type module interface {
	kind() Kind

	// validate checks that the bet kind belongs to this game and the
	// selection matches that kind's schema. Stake bounds are enforced by
	// the orchestrator, not here.
	validate(betKind BetKind, sel Selection, cfg Config) error

	// generate derives the round outcome from the fairness byte stream.
	generate(cfg Config, st *stream) (*Outcome, error)

	// evaluate resolves one bet against the outcome, returning the
	// status, the win amount (stake included for winners, stake for
	// pushes, zero for losses) and the commission withheld.
	evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error)
}

// defaultRegistry holds every built-in game. The map is populated once
// and read-only afterwards; Verify and the orchestrator both consult it.
var defaultRegistry = map[Kind]module{
	KindRouletteEuropean: rouletteModule{american: false},
	KindRouletteAmerican: rouletteModule{american: true},
	KindBaccarat:         baccaratModule{},
	KindDragonTiger:      dragonTigerModule{},
	KindSlotClassic:      slotModule{},
	KindBingo75:          bingoModule{},
	KindKeno:             kenoModule{},
}

func lookupModule(k Kind) (module, error) {
	mod, ok := defaultRegistry[k]
	if !ok {
		return nil, newError(CodeUnknownGame, "game kind %q is not registered", k)
	}
	return mod, nil
}

// RegisteredKinds lists every game kind the engine can play.
func RegisteredKinds() []Kind {
	kinds := make([]Kind, 0, len(defaultRegistry))
	for k := range defaultRegistry {
		kinds = append(kinds, k)
	}
	return kinds
}

const defaultPrecision = 2

func (c Config) precision() int32 {
	if c.Precision > 0 {
		return c.Precision
	}
	return defaultPrecision
}

var (
	decimalOne = decimal.NewFromInt(1)
	decimalTwo = decimal.NewFromInt(2)
)

// settleWin turns a paytable hit into money. Gross payout is stake times
// the gross multiplier; commission is taken on profit only, never on the
// returned stake. Multiplication runs at full precision, the results are
// rounded half-to-even at the game's monetary precision.
func settleWin(stake, gross, commissionRate decimal.Decimal, precision int32) (win, commission decimal.Decimal) {
	grossPayout := stake.Mul(gross)
	profit := grossPayout.Sub(stake)
	commission = profit.Mul(commissionRate).RoundBank(precision)
	win = grossPayout.Sub(commission).RoundBank(precision)
	return win, commission
}

// resolve maps a queried paytable entry onto the bet statuses: gross 0 is
// a loss, gross 1 with no commission is a push, anything else a win.
func resolve(stake, gross, commissionRate decimal.Decimal, precision int32) (BetStatus, decimal.Decimal, decimal.Decimal) {
	switch {
	case gross.IsZero():
		return BetLost, decimal.Zero, decimal.Zero
	case gross.Equal(decimalOne) && commissionRate.IsZero():
		return BetPush, stake.RoundBank(precision), decimal.Zero
	default:
		win, commission := settleWin(stake, gross, commissionRate, precision)
		return BetWon, win, commission
	}
}

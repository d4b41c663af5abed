package game

import "github.com/shopspring/decimal"

// Dragon-tiger bet kinds. No selections; one card each side, high card
// wins, ace low, king high.
const (
	DragonTigerDragon BetKind = "dragon"
	DragonTigerTie    BetKind = "dt_tie"
)

// DragonTigerTiger is the tiger-side bet.
const DragonTigerTiger BetKind = "tiger"

var dragonTigerGross = map[BetKind]decimal.Decimal{
	DragonTigerDragon: decimalTwo,
	DragonTigerTiger:  decimalTwo,
	DragonTigerTie:    decimal.NewFromInt(9), // default; sessions may configure the 11 variant
}

// defaultTieGross is the product default when the session config leaves
// TieGross unset.
var defaultTieGross = decimal.NewFromInt(9)

func (c Config) tieGross() decimal.Decimal {
	if c.TieGross.IsPositive() {
		return c.TieGross
	}
	return defaultTieGross
}

type dragonTigerModule struct{}

func (dragonTigerModule) kind() Kind { return KindDragonTiger }

func (dragonTigerModule) validate(betKind BetKind, sel Selection, cfg Config) error {
	switch betKind {
	case DragonTigerDragon, DragonTigerTiger, DragonTigerTie:
	default:
		return newError(CodeInvalidBetShape, "unknown dragon-tiger bet kind %q", betKind)
	}
	if len(sel.Numbers) != 0 || sel.Card != nil || sel.Line != 0 {
		return newError(CodeInvalidBetShape, "dragon-tiger bets take no selection")
	}
	return nil
}

func (m dragonTigerModule) generate(_ Config, st *stream) (*Outcome, error) {
	shoe := shuffleShoe(st)
	dragon, tiger := shoe[0], shoe[1]
	return &Outcome{Kind: KindDragonTiger, Dragon: &dragon, Tiger: &tiger}, nil
}

// evaluate resolves against the configured variant: tie pays the
// session's tie multiplier, main bets push on a tie.
func (m dragonTigerModule) evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error) {
	if out.Dragon == nil || out.Tiger == nil {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeConfigError, "dragon-tiger outcome is missing cards")
	}
	dragon := dragonTigerValue(*out.Dragon)
	tiger := dragonTigerValue(*out.Tiger)
	tie := dragon == tiger

	gross := decimal.Zero
	switch bet.Kind {
	case DragonTigerDragon:
		if tie {
			gross = decimalOne
		} else if dragon > tiger {
			gross = dragonTigerGross[bet.Kind]
		}
	case DragonTigerTiger:
		if tie {
			gross = decimalOne
		} else if tiger > dragon {
			gross = dragonTigerGross[bet.Kind]
		}
	case DragonTigerTie:
		if tie {
			gross = cfg.tieGross()
		}
	default:
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeInvalidBetShape, "unknown dragon-tiger bet kind %q", bet.Kind)
	}

	status, win, commission := resolve(bet.Stake, gross, decimal.Zero, cfg.precision())
	return status, win, commission, nil
}

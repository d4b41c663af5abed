package game

import "github.com/shopspring/decimal"

// KenoSpots is the single keno bet kind: 1 to 15 distinct spots over
// 1..80, paid by how many of the 20 drawn numbers they hit.
const KenoSpots BetKind = "spots"

const (
	kenoPool     = 80
	kenoDrawSize = 20
	kenoMinSpots = 1
	kenoMaxSpots = 15
)

// kenoGross is the two-dimensional paytable: gross multiplier keyed by
// (spots chosen, spots matched). Missing entries pay nothing. The 1x
// entries (4 spots/2 matched, 6 spots/3 matched) return the stake and
// settle as pushes, not wins.
var kenoGross = map[int]map[int]decimal.Decimal{
	1:  {1: dec(3)},
	2:  {2: dec(9)},
	3:  {2: dec(2), 3: dec(25)},
	4:  {2: dec(1), 3: dec(5), 4: dec(60)},
	5:  {3: dec(2), 4: dec(12), 5: dec(300)},
	6:  {3: dec(1), 4: dec(5), 5: dec(50), 6: dec(1000)},
	7:  {4: dec(2), 5: dec(15), 6: dec(100), 7: dec(2500)},
	8:  {5: dec(10), 6: dec(50), 7: dec(500), 8: dec(10000)},
	9:  {5: dec(4), 6: dec(20), 7: dec(100), 8: dec(2000), 9: dec(25000)},
	10: {5: dec(2), 6: dec(10), 7: dec(50), 8: dec(500), 9: dec(5000), 10: dec(50000)},
	11: {6: dec(8), 7: dec(25), 8: dec(150), 9: dec(1000), 10: dec(10000), 11: dec(50000)},
	12: {6: dec(4), 7: dec(20), 8: dec(80), 9: dec(500), 10: dec(2000), 11: dec(20000), 12: dec(100000)},
	13: {6: dec(2), 7: dec(10), 8: dec(50), 9: dec(250), 10: dec(1000), 11: dec(5000), 12: dec(50000), 13: dec(100000)},
	14: {7: dec(8), 8: dec(25), 9: dec(100), 10: dec(500), 11: dec(2500), 12: dec(10000), 13: dec(50000), 14: dec(100000)},
	15: {7: dec(5), 8: dec(15), 9: dec(50), 10: dec(250), 11: dec(1000), 12: dec(5000), 13: dec(25000), 14: dec(50000), 15: dec(100000)},
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

type kenoModule struct{}

func (kenoModule) kind() Kind { return KindKeno }

func (kenoModule) validate(betKind BetKind, sel Selection, _ Config) error {
	if betKind != KenoSpots {
		return newError(CodeInvalidBetShape, "unknown keno bet kind %q", betKind)
	}
	if sel.Card != nil || sel.Line != 0 {
		return newError(CodeInvalidBetShape, "keno bets select spot numbers only")
	}
	if len(sel.Numbers) < kenoMinSpots || len(sel.Numbers) > kenoMaxSpots {
		return newError(CodeInvalidBetShape, "keno takes %d..%d spots, got %d", kenoMinSpots, kenoMaxSpots, len(sel.Numbers))
	}
	seen := make(map[int]bool, len(sel.Numbers))
	for _, n := range sel.Numbers {
		if n < 1 || n > kenoPool {
			return newError(CodeOutOfRange, "spot %d outside 1..%d", n, kenoPool)
		}
		if seen[n] {
			return newError(CodeInvalidBetShape, "spot %d repeated", n)
		}
		seen[n] = true
	}
	return nil
}

// generate samples 20 distinct numbers from 1..80: the leading window of
// a stream-driven permutation.
func (kenoModule) generate(_ Config, st *stream) (*Outcome, error) {
	order := st.perm(kenoPool)
	draw := make([]int, kenoDrawSize)
	for i := 0; i < kenoDrawSize; i++ {
		draw[i] = order[i] + 1
	}
	return &Outcome{Kind: KindKeno, Draw: draw}, nil
}

func (kenoModule) evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error) {
	if bet.Kind != KenoSpots {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeInvalidBetShape, "unknown keno bet kind %q", bet.Kind)
	}
	drawn := make(map[int]bool, len(out.Draw))
	for _, n := range out.Draw {
		drawn[n] = true
	}
	matched := 0
	for _, n := range bet.Selection.Numbers {
		if drawn[n] {
			matched++
		}
	}
	gross := decimal.Zero
	if row, ok := kenoGross[len(bet.Selection.Numbers)]; ok {
		if g, ok := row[matched]; ok {
			gross = g
		}
	}
	status, win, commission := resolve(bet.Stake, gross, decimal.Zero, cfg.precision())
	return status, win, commission, nil
}

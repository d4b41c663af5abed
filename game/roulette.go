package game

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Roulette bet kinds. Inside bets carry their pocket set in the
// selection; even-money bets, columns and dozens are positional.
const (
	RouletteStraight BetKind = "straight"
	RouletteSplit    BetKind = "split"
	RouletteStreet   BetKind = "street"
	RouletteCorner   BetKind = "corner"
	RouletteLine     BetKind = "line"
	RouletteColumn   BetKind = "column"
	RouletteDozen    BetKind = "dozen"
	RouletteRed      BetKind = "red"
	RouletteBlack    BetKind = "black"
	RouletteOdd      BetKind = "odd"
	RouletteEven     BetKind = "even"
	RouletteHigh     BetKind = "high"
	RouletteLow      BetKind = "low"
)

// pocketDoubleZero encodes 00 on American wheels.
const pocketDoubleZero = 37

// rouletteGross is the paytable: gross multiplier per bet kind, stake
// included (straight pays 35:1 profit, hence 36). Queried, never computed
// at evaluation sites.
var rouletteGross = map[BetKind]decimal.Decimal{
	RouletteStraight: decimal.NewFromInt(36),
	RouletteSplit:    decimal.NewFromInt(18),
	RouletteStreet:   decimal.NewFromInt(12),
	RouletteCorner:   decimal.NewFromInt(9),
	RouletteLine:     decimal.NewFromInt(6),
	RouletteColumn:   decimal.NewFromInt(3),
	RouletteDozen:    decimal.NewFromInt(3),
	RouletteRed:      decimalTwo,
	RouletteBlack:    decimalTwo,
	RouletteOdd:      decimalTwo,
	RouletteEven:     decimalTwo,
	RouletteHigh:     decimalTwo,
	RouletteLow:      decimalTwo,
}

var redPockets = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

type rouletteModule struct {
	american bool
}

func (m rouletteModule) kind() Kind {
	if m.american {
		return KindRouletteAmerican
	}
	return KindRouletteEuropean
}

func (m rouletteModule) pockets() int {
	if m.american {
		return 38
	}
	return 37
}

func (m rouletteModule) validPocket(n int) bool {
	if n >= 0 && n <= 36 {
		return true
	}
	return m.american && n == pocketDoubleZero
}

func (m rouletteModule) validate(betKind BetKind, sel Selection, _ Config) error {
	if sel.Card != nil || sel.Line != 0 {
		return newError(CodeInvalidBetShape, "roulette selections carry pocket numbers only")
	}
	switch betKind {
	case RouletteStraight:
		if len(sel.Numbers) != 1 {
			return newError(CodeInvalidBetShape, "straight takes exactly one pocket")
		}
		if !m.validPocket(sel.Numbers[0]) {
			return newError(CodeOutOfRange, "pocket %d is not on this wheel", sel.Numbers[0])
		}
	case RouletteSplit:
		if len(sel.Numbers) != 2 {
			return newError(CodeInvalidBetShape, "split takes exactly two pockets")
		}
		for _, n := range sel.Numbers {
			if !m.validPocket(n) {
				return newError(CodeOutOfRange, "pocket %d is not on this wheel", n)
			}
		}
		if !splitAdjacent(sel.Numbers[0], sel.Numbers[1]) {
			return newError(CodeInvalidBetShape, "pockets %d and %d are not adjacent on the layout", sel.Numbers[0], sel.Numbers[1])
		}
	case RouletteStreet:
		if !canonicalStreet(sel.Numbers) {
			return newError(CodeInvalidBetShape, "street takes one full layout row")
		}
	case RouletteCorner:
		if !canonicalCorner(sel.Numbers) {
			return newError(CodeInvalidBetShape, "corner takes four pockets sharing a layout intersection")
		}
	case RouletteLine:
		if !canonicalLine(sel.Numbers) {
			return newError(CodeInvalidBetShape, "line takes two adjacent layout rows")
		}
	case RouletteColumn, RouletteDozen:
		if len(sel.Numbers) != 1 {
			return newError(CodeInvalidBetShape, "%s takes a single index", betKind)
		}
		if sel.Numbers[0] < 1 || sel.Numbers[0] > 3 {
			return newError(CodeOutOfRange, "%s index must be 1..3, got %d", betKind, sel.Numbers[0])
		}
	case RouletteRed, RouletteBlack, RouletteOdd, RouletteEven, RouletteHigh, RouletteLow:
		if len(sel.Numbers) != 0 {
			return newError(CodeInvalidBetShape, "%s takes no selection", betKind)
		}
	default:
		return newError(CodeInvalidBetShape, "unknown roulette bet kind %q", betKind)
	}
	return nil
}

// splitAdjacent reports layout adjacency: horizontal neighbours within a
// row, vertical neighbours across rows, and the zero pockets touching the
// first row.
func splitAdjacent(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	if a == 0 {
		return b >= 1 && b <= 3 || b == pocketDoubleZero
	}
	if b == pocketDoubleZero {
		return a >= 1 && a <= 3
	}
	if b == a+1 && a%3 != 0 {
		return true
	}
	return b == a+3
}

func canonicalStreet(nums []int) bool {
	if len(nums) != 3 {
		return false
	}
	s := sortedCopy(nums)
	return s[0] >= 1 && s[0] <= 34 && s[0]%3 == 1 && s[1] == s[0]+1 && s[2] == s[0]+2
}

func canonicalCorner(nums []int) bool {
	if len(nums) != 4 {
		return false
	}
	s := sortedCopy(nums)
	a := s[0]
	if a < 1 || a > 32 || a%3 == 0 {
		return false
	}
	return s[1] == a+1 && s[2] == a+3 && s[3] == a+4
}

func canonicalLine(nums []int) bool {
	if len(nums) != 6 {
		return false
	}
	s := sortedCopy(nums)
	a := s[0]
	if a < 1 || a > 31 || a%3 != 1 {
		return false
	}
	for i := 1; i < 6; i++ {
		if s[i] != a+i {
			return false
		}
	}
	return true
}

func sortedCopy(nums []int) []int {
	s := append([]int(nil), nums...)
	sort.Ints(s)
	return s
}

// generate consumes 8 bytes, interprets them big-endian and reduces
// modulo the pocket count. 37 is the 00 pocket on American wheels.
func (m rouletteModule) generate(_ Config, st *stream) (*Outcome, error) {
	pocket := int(st.uint64() % uint64(m.pockets()))
	return &Outcome{Kind: m.kind(), Pocket: pocket}, nil
}

func (m rouletteModule) evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error) {
	gross, ok := rouletteGross[bet.Kind]
	if !ok {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeInvalidBetShape, "unknown roulette bet kind %q", bet.Kind)
	}
	if !m.rouletteHit(bet.Kind, bet.Selection, out.Pocket) {
		gross = decimal.Zero
	}
	status, win, commission := resolve(bet.Stake, gross, decimal.Zero, cfg.precision())
	return status, win, commission, nil
}

// rouletteHit is the win predicate. The zero pockets only ever pay
// straight and split bets that cover them; every positional bet loses.
func (m rouletteModule) rouletteHit(betKind BetKind, sel Selection, pocket int) bool {
	zero := pocket == 0 || pocket == pocketDoubleZero
	switch betKind {
	case RouletteStraight, RouletteSplit, RouletteStreet, RouletteCorner, RouletteLine:
		for _, n := range sel.Numbers {
			if n == pocket {
				return true
			}
		}
		return false
	case RouletteColumn:
		return !zero && (pocket-1)%3+1 == sel.Numbers[0]
	case RouletteDozen:
		return !zero && (pocket-1)/12+1 == sel.Numbers[0]
	case RouletteRed:
		return redPockets[pocket]
	case RouletteBlack:
		return !zero && !redPockets[pocket]
	case RouletteOdd:
		return !zero && pocket%2 == 1
	case RouletteEven:
		return !zero && pocket%2 == 0
	case RouletteHigh:
		return pocket >= 19 && pocket <= 36
	case RouletteLow:
		return !zero && pocket <= 18
	}
	return false
}

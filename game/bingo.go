package game

import "github.com/shopspring/decimal"

// BingoCardBet is the single bingo-75 bet kind: a stake on one card. The
// winning pattern is whichever completes first as balls are drawn.
const BingoCardBet BetKind = "card"

// Bingo pattern tags, recorded per winning bet for audit.
const (
	BingoPatternLine       = "line"
	BingoPatternDoubleLine = "double_line"
	BingoPatternTripleLine = "triple_line"
	BingoPatternQuadLine   = "quad_line"
	BingoPatternBlackout   = "blackout"
	BingoPatternCorners    = "four_corners"
	BingoPatternX          = "x_pattern"
)

// Bingo paytable: gross multiplier per pattern, with a fixed 5% house
// edge withheld from profit at settlement.
var bingoGross = map[string]decimal.Decimal{
	BingoPatternLine:       decimal.NewFromInt(5),
	BingoPatternDoubleLine: decimal.NewFromInt(15),
	BingoPatternTripleLine: decimal.NewFromInt(50),
	BingoPatternQuadLine:   decimal.NewFromInt(150),
	BingoPatternBlackout:   decimal.NewFromInt(500),
	BingoPatternCorners:    decimal.NewFromInt(25),
	BingoPatternX:          decimal.NewFromInt(75),
}

var bingoEdge = decimal.NewFromFloat(0.05)

const (
	bingoBalls  = 75
	bingoCenter = 12 // row 2, col 2: the FREE cell
)

type bingoModule struct{}

func (bingoModule) kind() Kind { return KindBingo75 }

func (bingoModule) validate(betKind BetKind, sel Selection, _ Config) error {
	if betKind != BingoCardBet {
		return newError(CodeInvalidBetShape, "unknown bingo bet kind %q", betKind)
	}
	if sel.Card == nil {
		return newError(CodeInvalidBetShape, "bingo bets carry a card")
	}
	if len(sel.Numbers) != 0 || sel.Line != 0 {
		return newError(CodeInvalidBetShape, "bingo bets carry a card only")
	}
	seen := make(map[int]bool, 24)
	for idx, n := range sel.Card.Cells {
		if idx == bingoCenter {
			if n != 0 {
				return newError(CodeInvalidBetShape, "center cell is the FREE spot and must be zero")
			}
			continue
		}
		col := idx % 5
		lo, hi := 15*col+1, 15*col+15
		if n < lo || n > hi {
			return newError(CodeOutOfRange, "cell %d value %d outside column range %d..%d", idx, n, lo, hi)
		}
		if seen[n] {
			return newError(CodeInvalidBetShape, "card repeats number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// generate fixes the full ball order as a stream-driven permutation of
// 1..75. How far the draw conceptually ran is a property of the card, so
// the evaluator walks this order; the outcome itself is card-independent.
func (bingoModule) generate(_ Config, st *stream) (*Outcome, error) {
	order := st.perm(bingoBalls)
	balls := make([]int, bingoBalls)
	for i, v := range order {
		balls[i] = v + 1
	}
	return &Outcome{Kind: KindBingo75, Balls: balls}, nil
}

// bingoLines enumerates the 12 straight lines: 5 rows, 5 columns, 2
// diagonals, as cell index sets.
var bingoLines = buildBingoLines()

func buildBingoLines() [][]int {
	lines := make([][]int, 0, 12)
	for r := 0; r < 5; r++ {
		row := make([]int, 5)
		for c := 0; c < 5; c++ {
			row[c] = r*5 + c
		}
		lines = append(lines, row)
	}
	for c := 0; c < 5; c++ {
		col := make([]int, 5)
		for r := 0; r < 5; r++ {
			col[r] = r*5 + c
		}
		lines = append(lines, col)
	}
	lines = append(lines,
		[]int{0, 6, 12, 18, 24},
		[]int{4, 8, 12, 16, 20})
	return lines
}

var bingoCornerCells = []int{0, 4, 20, 24}

var bingoXCells = func() []int {
	cells := []int{0, 6, 18, 24, 4, 8, 16, 20, bingoCenter}
	return cells
}()

// evaluate walks the ball order against the card and settles on the first
// completed pattern; when several complete on the same ball the richest
// one pays. A configured ball budget (BingoMaxBalls) turns an unfinished
// card into a loss.
func (bingoModule) evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error) {
	if bet.Kind != BingoCardBet || bet.Selection.Card == nil {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeInvalidBetShape, "bingo bets carry a card")
	}
	card := bet.Selection.Card

	// markedAt[i] is the 1-based draw position that marks cell i; the
	// FREE center is marked before the first ball.
	drawPos := make(map[int]int, len(out.Balls))
	for i, ball := range out.Balls {
		drawPos[ball] = i + 1
	}
	var markedAt [25]int
	for idx, n := range card.Cells {
		if idx == bingoCenter {
			markedAt[idx] = 0
			continue
		}
		pos, ok := drawPos[n]
		if !ok {
			pos = bingoBalls + 1 // never drawn; only possible with a truncated outcome
		}
		markedAt[idx] = pos
	}

	completion := func(cells []int) int {
		worst := 0
		for _, c := range cells {
			if markedAt[c] > worst {
				worst = markedAt[c]
			}
		}
		return worst
	}

	lineDone := make([]int, len(bingoLines))
	for i, line := range bingoLines {
		lineDone[i] = completion(line)
	}
	sorted := sortedCopy(lineDone)

	all := make([]int, 25)
	for i := range all {
		all[i] = i
	}

	candidates := []struct {
		pattern string
		done    int
	}{
		{BingoPatternLine, sorted[0]},
		{BingoPatternDoubleLine, sorted[1]},
		{BingoPatternTripleLine, sorted[2]},
		{BingoPatternQuadLine, sorted[3]},
		{BingoPatternCorners, completion(bingoCornerCells)},
		{BingoPatternX, completion(bingoXCells)},
		{BingoPatternBlackout, completion(all)},
	}

	limit := len(out.Balls)
	if cfg.BingoMaxBalls > 0 && cfg.BingoMaxBalls < limit {
		limit = cfg.BingoMaxBalls
	}

	first := limit + 1
	var pattern string
	for _, cand := range candidates {
		if cand.done > limit {
			continue
		}
		gross := bingoGross[cand.pattern]
		if cand.done < first || (cand.done == first && gross.GreaterThan(bingoGross[pattern])) {
			first = cand.done
			pattern = cand.pattern
		}
	}

	if pattern == "" {
		status, win, commission := resolve(bet.Stake, decimal.Zero, decimal.Zero, cfg.precision())
		return status, win, commission, nil
	}
	status, win, commission := resolve(bet.Stake, bingoGross[pattern], bingoEdge, cfg.precision())
	return status, win, commission, nil
}

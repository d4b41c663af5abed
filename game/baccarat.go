package game

import "github.com/shopspring/decimal"

// Baccarat bet kinds. None of them take a selection.
const (
	BaccaratPlayer     BetKind = "player"
	BaccaratBanker     BetKind = "banker"
	BaccaratTie        BetKind = "tie"
	BaccaratPlayerPair BetKind = "player_pair"
	BaccaratBankerPair BetKind = "banker_pair"
)

// Baccarat paytable. Banker keeps the classic 5% commission, applied to
// profit at settlement. Player and banker push when the round ties.
var baccaratGross = map[BetKind]decimal.Decimal{
	BaccaratPlayer:     decimalTwo,
	BaccaratBanker:     decimal.NewFromFloat(1.95),
	BaccaratTie:        decimal.NewFromInt(9),
	BaccaratPlayerPair: decimal.NewFromInt(12),
	BaccaratBankerPair: decimal.NewFromInt(12),
}

var baccaratCommission = decimal.NewFromFloat(0.05)

type baccaratModule struct{}

func (baccaratModule) kind() Kind { return KindBaccarat }

func (baccaratModule) validate(betKind BetKind, sel Selection, _ Config) error {
	switch betKind {
	case BaccaratPlayer, BaccaratBanker, BaccaratTie, BaccaratPlayerPair, BaccaratBankerPair:
	default:
		return newError(CodeInvalidBetShape, "unknown baccarat bet kind %q", betKind)
	}
	if len(sel.Numbers) != 0 || sel.Card != nil || sel.Line != 0 {
		return newError(CodeInvalidBetShape, "baccarat bets take no selection")
	}
	return nil
}

// generate shuffles the six-deck shoe and deals player, banker, player,
// banker, then applies the standard tableau: naturals 8/9 stand pat,
// player draws on 0..5, banker by the table keyed on its total and the
// player's third card.
func (m baccaratModule) generate(_ Config, st *stream) (*Outcome, error) {
	shoe := shuffleShoe(st)
	next := 0
	draw := func() Card {
		c := shoe[next]
		next++
		return c
	}

	player := []Card{draw()}
	banker := []Card{draw()}
	player = append(player, draw())
	banker = append(banker, draw())

	if handTotal(player) < 8 && handTotal(banker) < 8 {
		playerThird := -1
		if handTotal(player) <= 5 {
			c := draw()
			player = append(player, c)
			playerThird = baccaratPoints(c)
		}
		if bankerDraws(handTotal(banker), playerThird) {
			banker = append(banker, draw())
		}
	}

	return &Outcome{Kind: KindBaccarat, Player: player, Banker: banker}, nil
}

// bankerDraws is the third-card tableau. playerThird is -1 when the
// player stood on 6 or 7.
func bankerDraws(bankerTotal, playerThird int) bool {
	if playerThird < 0 {
		return bankerTotal <= 5
	}
	switch bankerTotal {
	case 0, 1, 2:
		return true
	case 3:
		return playerThird != 8
	case 4:
		return playerThird >= 2 && playerThird <= 7
	case 5:
		return playerThird >= 4 && playerThird <= 7
	case 6:
		return playerThird == 6 || playerThird == 7
	default:
		return false
	}
}

func (m baccaratModule) evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error) {
	base, ok := baccaratGross[bet.Kind]
	if !ok {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeInvalidBetShape, "unknown baccarat bet kind %q", bet.Kind)
	}

	playerTotal := handTotal(out.Player)
	bankerTotal := handTotal(out.Banker)
	tie := playerTotal == bankerTotal

	gross := decimal.Zero
	commissionRate := decimal.Zero
	switch bet.Kind {
	case BaccaratPlayer:
		if tie {
			gross = decimalOne
		} else if playerTotal > bankerTotal {
			gross = base
		}
	case BaccaratBanker:
		if tie {
			gross = decimalOne
		} else if bankerTotal > playerTotal {
			gross = base
			commissionRate = baccaratCommission
		}
	case BaccaratTie:
		if tie {
			gross = base
		}
	case BaccaratPlayerPair:
		if isPair(out.Player) {
			gross = base
		}
	case BaccaratBankerPair:
		if isPair(out.Banker) {
			gross = base
		}
	}

	status, win, commission := resolve(bet.Stake, gross, commissionRate, cfg.precision())
	return status, win, commission, nil
}

// isPair checks the first two dealt cards for equal rank.
func isPair(hand []Card) bool {
	return len(hand) >= 2 && hand[0].Rank == hand[1].Rank
}

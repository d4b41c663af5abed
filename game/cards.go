package game

// Card-draw games share one shoe model: six standard 52-card decks,
// shuffled by the stream-driven Fisher-Yates in fairness.go and drawn
// from the front in dealing order.

const (
	decksInShoe = 6
	shoeSize    = decksInShoe * 52
)

// shoeCard maps a shoe index 0..311 to a card. Index layout is
// deck-major: rank cycles fastest, then suit, then deck.
func shoeCard(idx int) Card {
	within := idx % 52
	return Card{Rank: within%13 + 1, Suit: within / 13}
}

// shuffleShoe deals the shoe order for a round. The permutation fixes the
// entire draw sequence up front, so dealing is just walking the slice.
func shuffleShoe(s *stream) []Card {
	order := s.perm(shoeSize)
	cards := make([]Card, shoeSize)
	for i, idx := range order {
		cards[i] = shoeCard(idx)
	}
	return cards
}

// baccaratPoints is the baccarat value of a card: ace 1, tens and faces 0.
func baccaratPoints(c Card) int {
	if c.Rank >= 10 {
		return 0
	}
	return c.Rank
}

func handTotal(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += baccaratPoints(c)
	}
	return total % 10
}

// dragonTigerValue ranks a card for dragon-tiger: ace low (1) through
// king high (13). Suits never break ties.
func dragonTigerValue(c Card) int {
	return c.Rank
}

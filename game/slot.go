package game

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SlotLine is the only slot bet kind: a stake on one configured payline.
// The selection's Line field is the 1-based payline index.
const SlotLine BetKind = "payline"

// Symbol is a reel symbol.
type Symbol string

const (
	SymbolCherry Symbol = "cherry"
	SymbolLemon  Symbol = "lemon"
	SymbolOrange Symbol = "orange"
	SymbolPlum   Symbol = "plum"
	SymbolBell   Symbol = "bell"
	SymbolBar    Symbol = "bar"
	SymbolSeven  Symbol = "seven"
	SymbolBonus  Symbol = "bonus"
)

// SlotConfig enumerates reel strips, paylines and the line paytable for a
// slot session. Configs are authored and version-tagged; the engine never
// invents strips at runtime.
type SlotConfig struct {
	Version string `json:"version"`

	// Reels holds one strip per reel. Stops index into the strip.
	Reels [][]Symbol `json:"reels"`

	// Paylines picks one window row (0 top, 1 middle, 2 bottom) per reel.
	Paylines [][]int `json:"paylines"`

	// LineGross maps a symbol triple, joined with commas in reel order,
	// to its gross multiplier.
	LineGross map[string]decimal.Decimal `json:"line_gross"`

	// BonusSymbol occurrences anywhere in the window, BonusCount or more,
	// trigger the bonus independently of line wins.
	BonusSymbol Symbol `json:"bonus_symbol"`
	BonusCount  int    `json:"bonus_count"`
}

// DefaultSlotConfig is the authored classic 3-reel configuration, version
// locked so recorded settlements stay replayable against it.
func DefaultSlotConfig() *SlotConfig {
	strip := buildStrip(map[Symbol]int{
		SymbolCherry: 8,
		SymbolLemon:  6,
		SymbolOrange: 5,
		SymbolPlum:   4,
		SymbolBell:   3,
		SymbolBonus:  3,
		SymbolBar:    2,
		SymbolSeven:  1,
	})
	return &SlotConfig{
		Version: "classic-3x32-v1",
		Reels:   [][]Symbol{strip, strip, strip},
		Paylines: [][]int{
			{1, 1, 1},
			{0, 0, 0},
			{2, 2, 2},
			{0, 1, 2},
			{2, 1, 0},
		},
		LineGross: map[string]decimal.Decimal{
			tripleKey(SymbolCherry): decimal.NewFromInt(20),
			tripleKey(SymbolLemon):  decimal.NewFromInt(25),
			tripleKey(SymbolOrange): decimal.NewFromInt(30),
			tripleKey(SymbolPlum):   decimal.NewFromInt(40),
			tripleKey(SymbolBell):   decimal.NewFromInt(60),
			tripleKey(SymbolBar):    decimal.NewFromInt(150),
			tripleKey(SymbolSeven):  decimal.NewFromInt(500),
		},
		BonusSymbol: SymbolBonus,
		BonusCount:  3,
	}
}

func buildStrip(counts map[Symbol]int) []Symbol {
	// Interleave symbols deterministically so identical symbols spread
	// around the strip instead of clustering.
	order := []Symbol{SymbolCherry, SymbolLemon, SymbolOrange, SymbolPlum, SymbolBell, SymbolBonus, SymbolBar, SymbolSeven}
	remaining := make(map[Symbol]int, len(counts))
	total := 0
	for s, n := range counts {
		remaining[s] = n
		total += n
	}
	strip := make([]Symbol, 0, total)
	for len(strip) < total {
		for _, s := range order {
			if remaining[s] > 0 {
				strip = append(strip, s)
				remaining[s]--
			}
		}
	}
	return strip
}

func tripleKey(s Symbol) string { return lineKey([3]Symbol{s, s, s}) }

func lineKey(symbols [3]Symbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func (c *SlotConfig) check() error {
	if c == nil {
		return newError(CodeConfigError, "slot sessions require a slot config")
	}
	if len(c.Reels) == 0 {
		return newError(CodeConfigError, "slot config %q has no reels", c.Version)
	}
	for i, strip := range c.Reels {
		if len(strip) == 0 {
			return newError(CodeConfigError, "slot config %q reel %d is empty", c.Version, i)
		}
	}
	if len(c.Paylines) == 0 {
		return newError(CodeConfigError, "slot config %q has no paylines", c.Version)
	}
	for i, line := range c.Paylines {
		if len(line) != len(c.Reels) {
			return newError(CodeConfigError, "slot config %q payline %d covers %d reels, want %d", c.Version, i, len(line), len(c.Reels))
		}
		for _, row := range line {
			if row < 0 || row > 2 {
				return newError(CodeConfigError, "slot config %q payline %d row %d outside window", c.Version, i, row)
			}
		}
	}
	if len(c.LineGross) == 0 {
		return newError(CodeConfigError, "slot config %q has no line paytable", c.Version)
	}
	return nil
}

type slotModule struct{}

func (slotModule) kind() Kind { return KindSlotClassic }

func (slotModule) validate(betKind BetKind, sel Selection, cfg Config) error {
	if betKind != SlotLine {
		return newError(CodeInvalidBetShape, "unknown slot bet kind %q", betKind)
	}
	if err := cfg.Slot.check(); err != nil {
		return err
	}
	if len(sel.Numbers) != 0 || sel.Card != nil {
		return newError(CodeInvalidBetShape, "slot bets select a payline only")
	}
	if sel.Line < 1 || sel.Line > len(cfg.Slot.Paylines) {
		return newError(CodeOutOfRange, "payline %d outside 1..%d", sel.Line, len(cfg.Slot.Paylines))
	}
	return nil
}

// generate picks each reel's stop from 4 stream bytes reduced modulo the
// strip length; the visible window is the three symbols centered on the
// stop, wrapping around the strip.
func (slotModule) generate(cfg Config, st *stream) (*Outcome, error) {
	if err := cfg.Slot.check(); err != nil {
		return nil, err
	}
	sc := cfg.Slot
	stops := make([]int, len(sc.Reels))
	window := make([][]Symbol, 3)
	for row := range window {
		window[row] = make([]Symbol, len(sc.Reels))
	}
	bonusSeen := 0
	for reel, strip := range sc.Reels {
		n := len(strip)
		stop := st.intn(n)
		stops[reel] = stop
		for row := 0; row < 3; row++ {
			sym := strip[((stop+row-1)%n+n)%n]
			window[row][reel] = sym
			if sc.BonusSymbol != "" && sym == sc.BonusSymbol {
				bonusSeen++
			}
		}
	}
	bonus := sc.BonusCount > 0 && bonusSeen >= sc.BonusCount
	return &Outcome{Kind: KindSlotClassic, Stops: stops, Window: window, Bonus: bonus}, nil
}

func (slotModule) evaluate(bet *Bet, out *Outcome, cfg Config) (BetStatus, decimal.Decimal, decimal.Decimal, error) {
	if err := cfg.Slot.check(); err != nil {
		return BetVoid, decimal.Zero, decimal.Zero, err
	}
	sc := cfg.Slot
	if bet.Kind != SlotLine {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeInvalidBetShape, "unknown slot bet kind %q", bet.Kind)
	}
	if bet.Selection.Line < 1 || bet.Selection.Line > len(sc.Paylines) {
		return BetVoid, decimal.Zero, decimal.Zero, newError(CodeOutOfRange, "payline %d outside 1..%d", bet.Selection.Line, len(sc.Paylines))
	}
	line := sc.Paylines[bet.Selection.Line-1]
	parts := make([]string, len(line))
	for reel, row := range line {
		parts[reel] = string(out.Window[row][reel])
	}
	gross, hit := sc.LineGross[strings.Join(parts, ",")]
	if !hit {
		gross = decimal.Zero
	}
	status, win, commission := resolve(bet.Stake, gross, decimal.Zero, cfg.precision())
	return status, win, commission, nil
}

// LineSymbols reports the symbols a payline crossed in an outcome window,
// mainly for presentation layers.
func LineSymbols(cfg *SlotConfig, lineIndex int, out *Outcome) ([]Symbol, error) {
	if cfg == nil || lineIndex < 1 || lineIndex > len(cfg.Paylines) {
		return nil, newError(CodeOutOfRange, "payline %d not in config", lineIndex)
	}
	if len(out.Window) != 3 {
		return nil, fmt.Errorf("outcome window is not a slot window")
	}
	line := cfg.Paylines[lineIndex-1]
	symbols := make([]Symbol, len(line))
	for reel, row := range line {
		symbols[reel] = out.Window[row][reel]
	}
	return symbols, nil
}

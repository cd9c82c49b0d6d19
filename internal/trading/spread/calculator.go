// Package spread computes cross-exchange spreads and the entry/exit
// thresholds they are compared against.
package spread

import (
	"sync"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// targetScale is the precision thresholds are rounded to. Rounding is
// half-even so thresholds are stable across runs.
const targetScale = 15

var one = decimal.NewFromInt(1)

// Calculator derives spreads from ticker pairs and tracks the observed
// extremes per trade combination for operator visibility.
type Calculator struct {
	logger core.ILogger

	mu         sync.Mutex
	minSpreads map[core.TradeCombination]decimal.Decimal
	maxSpreads map[core.TradeCombination]decimal.Decimal
}

// NewCalculator creates a spread calculator
func NewCalculator(logger core.ILogger) *Calculator {
	return &Calculator{
		logger:     logger,
		minSpreads: make(map[core.TradeCombination]decimal.Decimal),
		maxSpreads: make(map[core.TradeCombination]decimal.Decimal),
	}
}

// ComputeSpread builds the entry and exit spreads for one combination.
// The entry spread buys at the long ask and sells at the short bid; the
// exit spread unwinds at the long bid and short ask.
func (c *Calculator) ComputeSpread(combo core.TradeCombination, long, short core.Ticker) (core.Spread, bool) {
	if !long.IsValid() || !short.IsValid() {
		return core.Spread{}, false
	}

	in := spreadBetween(long.Ask, short.Bid)
	out := spreadBetween(long.Bid, short.Ask)

	s := core.Spread{
		Combination: combo,
		LongTicker:  long,
		ShortTicker: short,
		In:          in,
		Out:         out,
	}
	c.record(combo, in)
	return s, true
}

// spreadBetween is (shortPrice - longPrice) / longPrice
func spreadBetween(longPrice, shortPrice decimal.Decimal) decimal.Decimal {
	return shortPrice.Sub(longPrice).DivRound(longPrice, 20).RoundBank(targetScale)
}

// EntrySpreadTarget folds both legs' fees into the configured entry target.
// The threshold is the spread at which buying the long leg (paying its fee
// on top) and selling the short leg (losing its fee from the proceeds)
// still clears the target.
func EntrySpreadTarget(target, longFee, shortFee decimal.Decimal) decimal.Decimal {
	t := one.Add(target).
		Mul(one.Add(longFee)).
		DivRound(one.Sub(shortFee), 20).
		Sub(one)
	return t.RoundBank(targetScale)
}

// ExitSpreadTarget derives the exit threshold from the spread realized at
// entry. Both legs pay fees again on the way out, so the exit spread that
// locks in the minimum profit is usually negative.
func ExitSpreadTarget(minProfit, entrySpread, longFee, shortFee decimal.Decimal) decimal.Decimal {
	num := one.Add(entrySpread).
		Mul(one.Sub(longFee)).
		Mul(one.Sub(shortFee))
	den := one.Add(minProfit).
		Mul(one.Add(longFee)).
		Mul(one.Add(shortFee))
	t := num.DivRound(den, 20).Sub(one)
	return t.RoundBank(targetScale)
}

// record keeps the running min and max of observed entry spreads
func (c *Calculator) record(combo core.TradeCombination, in decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.minSpreads[combo]; !ok || in.LessThan(cur) {
		c.minSpreads[combo] = in
	}
	if cur, ok := c.maxSpreads[combo]; !ok || in.GreaterThan(cur) {
		c.maxSpreads[combo] = in
	}
}

// Extremes returns the lowest and highest entry spread seen for a combination
func (c *Calculator) Extremes(combo core.TradeCombination) (min, max decimal.Decimal, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	min, okMin := c.minSpreads[combo]
	max, okMax := c.maxSpreads[combo]
	return min, max, okMin && okMax
}

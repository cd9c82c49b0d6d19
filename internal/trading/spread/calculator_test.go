package spread

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spread_trader/internal/core"
	"spread_trader/pkg/logging"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ticker(exchange string, bid, ask string) core.Ticker {
	return core.Ticker{
		Exchange:  exchange,
		Pair:      core.CurrencyPair{Base: "BTC", Counter: "USD"},
		Bid:       dec(bid),
		Ask:       dec(ask),
		Timestamp: time.Now(),
	}
}

func testCombo() core.TradeCombination {
	return core.TradeCombination{
		LongExchange:  "alpha",
		ShortExchange: "bravo",
		Pair:          core.CurrencyPair{Base: "BTC", Counter: "USD"},
	}
}

func TestEntrySpreadTarget(t *testing.T) {
	got := EntrySpreadTarget(dec("0.001"), dec("0.005"), dec("0.0026"))
	assert.Equal(t, "0.008627431321436", got.String())
}

func TestExitSpreadTarget(t *testing.T) {
	entry := EntrySpreadTarget(dec("0.001"), dec("0.005"), dec("0.0026"))
	got := ExitSpreadTarget(dec("0.001"), entry, dec("0.005"), dec("0.0026"))
	assert.Equal(t, "-0.007580291242769", got.String())
}

func TestEntrySpreadTargetZeroFees(t *testing.T) {
	got := EntrySpreadTarget(dec("0.001"), decimal.Zero, decimal.Zero)
	assert.Equal(t, "0.001", got.String())
}

func TestComputeSpread(t *testing.T) {
	c := NewCalculator(logging.NewNop())

	// long ask 100, short bid 110 gives a 10% entry spread
	s, ok := c.ComputeSpread(testCombo(), ticker("alpha", "99", "100"), ticker("bravo", "110", "111"))
	require.True(t, ok)
	assert.Equal(t, "0.1", s.In.String())
	// exit uses long bid 99 and short ask 111
	assert.True(t, s.Out.Equal(dec("111").Sub(dec("99")).DivRound(dec("99"), 20)))
}

func TestComputeSpreadRejectsInvalidTickers(t *testing.T) {
	c := NewCalculator(logging.NewNop())

	_, ok := c.ComputeSpread(testCombo(), ticker("alpha", "0", "0"), ticker("bravo", "110", "111"))
	assert.False(t, ok)

	stale := ticker("alpha", "99", "100")
	stale.Bid = decimal.Decimal{}
	stale.Ask = decimal.Decimal{}
	_, ok = c.ComputeSpread(testCombo(), stale, ticker("bravo", "110", "111"))
	assert.False(t, ok)
}

func TestExtremes(t *testing.T) {
	c := NewCalculator(logging.NewNop())
	combo := testCombo()

	_, _, ok := c.Extremes(combo)
	assert.False(t, ok)

	c.ComputeSpread(combo, ticker("alpha", "99", "100"), ticker("bravo", "101", "102"))
	c.ComputeSpread(combo, ticker("alpha", "99", "100"), ticker("bravo", "110", "111"))
	c.ComputeSpread(combo, ticker("alpha", "99", "100"), ticker("bravo", "95", "96"))

	min, max, ok := c.Extremes(combo)
	require.True(t, ok)
	assert.True(t, min.LessThan(decimal.Zero))
	assert.Equal(t, "0.1", max.String())
}

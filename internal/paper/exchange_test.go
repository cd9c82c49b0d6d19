package paper

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spread_trader/internal/core"
	"spread_trader/internal/mock"
)

var btcusd = core.CurrencyPair{Base: "BTC", Counter: "USD"}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPaper(t *testing.T, cfg Config) (*Exchange, *mock.MockExchange) {
	t.Helper()
	delegate := mock.NewExchange("alpha")
	delegate.SetTicker(btcusd, dec("99"), dec("100"))
	if cfg.InitialBalance.IsZero() {
		cfg.InitialBalance = dec("10000")
	}
	return NewExchange(delegate, cfg), delegate
}

func TestAutoFillBuySettlesLedger(t *testing.T) {
	ex, _ := newPaper(t, Config{AutoFill: true, Fee: core.ExchangeFee{TradeFee: dec("0.0026")}})
	ctx := context.Background()

	id, err := ex.PlaceLimitOrder(ctx, core.SideBuy, btcusd, dec("1"), dec("100"))
	require.NoError(t, err)

	order, err := ex.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusFilled, order.Status)
	assert.True(t, order.FilledVolume.Equal(dec("1")))

	base, err := ex.GetBalance(ctx, "BTC")
	require.NoError(t, err)
	assert.True(t, base.Equal(dec("1")))

	// 10000 - 100 notional - 0.26 fee
	quote, err := ex.GetBalance(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, quote.Equal(dec("9899.74")), "got %s", quote)
}

func TestSellCreditsQuoteNetOfFee(t *testing.T) {
	ex, _ := newPaper(t, Config{AutoFill: true, Fee: core.ExchangeFee{TradeFee: dec("0.01")}})
	ctx := context.Background()

	// buy first so the cash account holds base to sell
	_, err := ex.PlaceLimitOrder(ctx, core.SideBuy, btcusd, dec("1"), dec("100"))
	require.NoError(t, err)
	_, err = ex.PlaceLimitOrder(ctx, core.SideSell, btcusd, dec("1"), dec("110"))
	require.NoError(t, err)

	base, _ := ex.GetBalance(ctx, "BTC")
	assert.True(t, base.IsZero())
	// 10000 - 100 - 1 + 110 - 1.1
	quote, _ := ex.GetBalance(ctx, "USD")
	assert.True(t, quote.Equal(dec("10007.9")), "got %s", quote)
}

func TestInsufficientFundsRejectedBeforePlacement(t *testing.T) {
	ex, _ := newPaper(t, Config{AutoFill: true})
	ctx := context.Background()

	_, err := ex.PlaceLimitOrder(ctx, core.SideBuy, btcusd, dec("1000"), dec("100"))
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	open, err := ex.GetOpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Empty(t, ex.Trades())
}

func TestMarginAccountMaySellUnheldBase(t *testing.T) {
	ex, _ := newPaper(t, Config{AutoFill: true, Margin: true})
	ctx := context.Background()

	_, err := ex.PlaceLimitOrder(ctx, core.SideSell, btcusd, dec("2"), dec("110"))
	require.NoError(t, err)

	base, _ := ex.GetBalance(ctx, "BTC")
	assert.True(t, base.Equal(dec("-2")))
}

func TestLimitOrderFillsOnlyWhenPriceCrosses(t *testing.T) {
	ex, delegate := newPaper(t, Config{AutoFill: false})
	ctx := context.Background()

	// ask is 100, so a buy limit at 95 rests
	id, err := ex.PlaceLimitOrder(ctx, core.SideBuy, btcusd, dec("1"), dec("95"))
	require.NoError(t, err)

	order, err := ex.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusNew, order.Status)

	// market drops through the limit
	delegate.SetTicker(btcusd, dec("93"), dec("94"))

	order, err = ex.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusFilled, order.Status)
}

func TestCancelOrder(t *testing.T) {
	ex, _ := newPaper(t, Config{AutoFill: false})
	ctx := context.Background()

	id, err := ex.PlaceLimitOrder(ctx, core.SideBuy, btcusd, dec("1"), dec("95"))
	require.NoError(t, err)
	require.NoError(t, ex.CancelOrder(ctx, id))

	order, err := ex.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusCanceled, order.Status)

	assert.ErrorIs(t, ex.CancelOrder(ctx, "unknown"), core.ErrOrderNotFound)
}

func TestTradesRecorded(t *testing.T) {
	ex, _ := newPaper(t, Config{AutoFill: true, Fee: core.ExchangeFee{TradeFee: dec("0.0026")}})
	ctx := context.Background()

	_, err := ex.PlaceLimitOrder(ctx, core.SideBuy, btcusd, dec("1"), dec("100"))
	require.NoError(t, err)

	trades := ex.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, core.SideBuy, trades[0].Side)
	assert.True(t, trades[0].Fee.Equal(dec("0.26")))
}

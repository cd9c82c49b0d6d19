package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
	"spread_trader/internal/state"
	"spread_trader/internal/trading/spread"
)

var errInsufficientLiquidity = errors.New("order book depth insufficient for volume")

// defaultFee is used when a venue has no dynamic fee endpoint and no
// configured rate.
var defaultFee = decimal.NewFromFloat(0.0030)

// defaultMinTradable is the minimum order volume accepted when the venue
// does not declare one.
var defaultMinTradable = decimal.NewFromFloat(0.001)

// feesFor resolves the total fee of each leg, preferring the venue's
// dynamic fee endpoint and caching the answer forever.
func (e *Engine) feesFor(ctx context.Context, combo core.TradeCombination) (longFee, shortFee decimal.Decimal, err error) {
	longFee, err = e.feeFor(ctx, combo.LongExchange, combo.Pair)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	shortFee, err = e.feeFor(ctx, combo.ShortExchange, combo.Pair)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return longFee, shortFee, nil
}

func (e *Engine) feeFor(ctx context.Context, exchangeName string, pair core.CurrencyPair) (decimal.Decimal, error) {
	key := exchangeName + ":" + pair.String()
	if fee, ok := e.fees.Get(key); ok {
		return fee.Total(), nil
	}

	fee, err := e.exchanges[exchangeName].GetTradingFee(ctx, pair)
	if errors.Is(err, core.ErrDynamicFeeUnsupported) {
		fee = e.configuredFee(exchangeName)
		err = nil
	}
	if err != nil {
		e.logger.Warn("Dynamic fee lookup failed, using configured fee",
			"exchange", exchangeName, "error", err)
		fee = e.configuredFee(exchangeName)
	}

	e.fees.Put(key, fee)
	return fee.Total(), nil
}

func (e *Engine) configuredFee(exchangeName string) core.ExchangeFee {
	cfg := e.exchangeCfg[exchangeName]
	rate := defaultFee
	if cfg.FeeRate > 0 {
		rate = decimal.NewFromFloat(cfg.FeeRate)
	}
	fee := core.ExchangeFee{TradeFee: rate}
	if cfg.Margin && cfg.MarginFeeRate != nil {
		margin := decimal.NewFromFloat(*cfg.MarginFeeRate)
		fee.MarginFee = &margin
	}
	return fee
}

func (e *Engine) feeComputation(exchangeName string) core.FeeComputation {
	fc, err := core.ParseFeeComputation(e.exchangeCfg[exchangeName].FeeComputation)
	if err != nil {
		return core.FeeComputationServer
	}
	return fc
}

func (e *Engine) minTradable(exchangeName string) decimal.Decimal {
	if v := e.exchangeCfg[exchangeName].MinTradableAmount; v != nil {
		return decimal.NewFromFloat(*v)
	}
	return defaultMinTradable
}

func (e *Engine) stepSize(exchangeName string) decimal.Decimal {
	if v := e.exchangeCfg[exchangeName].OrderVolumeStep; v != nil {
		return decimal.NewFromFloat(*v)
	}
	return decimal.Zero
}

func (e *Engine) volumeScale(exchangeName string) int32 {
	if s := e.exchangeCfg[exchangeName].VolumeScale; s > 0 {
		return s
	}
	return 8
}

// entryTarget returns the configured entry threshold, either verbatim or
// derived from the profit target and both legs' fees.
func (e *Engine) entryTarget(longFee, shortFee decimal.Decimal) decimal.Decimal {
	if t := e.cfg.Trading.EntrySpreadTarget; t != nil {
		return decimal.NewFromFloat(*t)
	}
	return spread.EntrySpreadTarget(decimal.NewFromFloat(e.cfg.Trading.EntryTarget), longFee, shortFee)
}

// exitTarget returns the exit threshold for a position entered at the
// given spread.
func (e *Engine) exitTarget(entrySpread, longFee, shortFee decimal.Decimal) decimal.Decimal {
	if t := e.cfg.Trading.ExitSpreadTarget; t != nil {
		return decimal.NewFromFloat(*t)
	}
	return spread.ExitSpreadTarget(decimal.NewFromFloat(e.cfg.Trading.MinimumProfit), entrySpread, longFee, shortFee)
}

// limitPriceForVolume walks one side of the book until the cumulative
// depth covers the requested volume and returns the price of the level
// that completes it. An exhausted book means the trade cannot fill.
func limitPriceForVolume(levels []core.OrderBookEntry, volume decimal.Decimal) (decimal.Decimal, error) {
	cumulative := decimal.Zero
	for _, level := range levels {
		cumulative = cumulative.Add(level.Volume)
		if cumulative.GreaterThanOrEqual(volume) {
			return level.Price, nil
		}
	}
	return decimal.Zero, errInsufficientLiquidity
}

// combinedBalance sums the home-currency balance across all exchanges,
// using the TTL cache to stay off the venues' rate limits.
func (e *Engine) combinedBalance(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for name, ex := range e.exchanges {
		if cached, ok := e.balances.Get(name); ok {
			total = total.Add(cached)
			continue
		}
		balance, err := ex.GetBalance(ctx, e.exchangeCfg[name].HomeCurrency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("balance lookup on %s: %w", name, err)
		}
		e.balances.Put(name, balance)
		total = total.Add(balance)
	}
	return total, nil
}

// invalidateBalances drops the cached balances of the traded venues so
// the next read reflects the trade.
func (e *Engine) invalidateBalances(names ...string) {
	for _, name := range names {
		e.balances.Invalidate(name)
	}
}

// awaitFill polls an order until it leaves the NEW state or the poll
// budget runs out. Polling never fails the trade: on timeout the last
// observed order is returned and the caller works with what it knows.
func (e *Engine) awaitFill(ctx context.Context, ex core.IExchange, orderID string) core.Order {
	poll := time.Duration(e.cfg.Trading.FillPollSeconds) * time.Second
	maxPolls := e.cfg.Trading.FillTimeoutSeconds / e.cfg.Trading.FillPollSeconds
	if maxPolls < 1 {
		maxPolls = 1
	}

	policy := retrypolicy.NewBuilder[core.Order]().
		HandleIf(func(order core.Order, err error) bool {
			return err == nil && order.Status == core.OrderStatusNew
		}).
		WithDelay(poll).
		WithMaxRetries(maxPolls).
		Build()

	order, err := failsafe.With[core.Order](policy).WithContext(ctx).Get(func() (core.Order, error) {
		return ex.GetOrder(ctx, orderID)
	})
	if err != nil {
		if !errors.Is(err, retrypolicy.ErrExceeded) {
			e.logger.Warn("Fill poll failed", "exchange", ex.GetName(), "order_id", orderID, "error", err)
		} else {
			e.logger.Warn("Order not filled within poll budget",
				"exchange", ex.GetName(), "order_id", orderID)
		}
		// best effort final read
		if last, lastErr := ex.GetOrder(ctx, orderID); lastErr == nil {
			return last
		}
		return core.Order{ID: orderID, Status: core.OrderStatusNew}
	}
	return order
}

// filledVolume resolves how much of an entry order actually filled, in
// priority order: the venue's view of the order, the account balance of
// the base currency, and finally the originally recorded volume.
func (e *Engine) filledVolume(ctx context.Context, ex core.IExchange, trade state.Trade, pair core.CurrencyPair) decimal.Decimal {
	if order, err := ex.GetOrder(ctx, trade.OrderID); err == nil && order.FilledVolume.IsPositive() {
		return order.FilledVolume
	}

	if balance, err := ex.GetBalance(ctx, pair.Base); err == nil && balance.IsPositive() {
		e.logger.Warn("Order volume unknown, falling back to account balance",
			"exchange", ex.GetName(), "order_id", trade.OrderID)
		return balance
	}

	if cached, ok := e.orderVolumes.Get(trade.OrderID); ok {
		e.logger.Warn("Falling back to recorded order volume",
			"exchange", ex.GetName(), "order_id", trade.OrderID)
		return cached
	}
	return trade.Volume
}

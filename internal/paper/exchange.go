// Package paper provides a simulated exchange for dry-running the engine
// with real market data and fake money.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// Config describes one simulated account
type Config struct {
	InitialBalance decimal.Decimal
	HomeCurrency   string
	AutoFill       bool
	Margin         bool
	Fee            core.ExchangeFee
}

// TradeRecord is one synthetic fill
type TradeRecord struct {
	OrderID  string
	Pair     core.CurrencyPair
	Side     core.Side
	Price    decimal.Decimal
	Volume   decimal.Decimal
	Fee      decimal.Decimal
	FilledAt time.Time
}

// Exchange simulates order handling on top of a real market-data
// gateway. Quotes and order books come from the delegate; balances,
// orders and fills live in an in-memory ledger.
type Exchange struct {
	delegate core.IExchange
	cfg      Config

	mu       sync.Mutex
	balances map[string]decimal.Decimal
	orders   map[string]*core.Order
	trades   []TradeRecord
}

// NewExchange creates a paper exchange seeded with the configured
// balance in the home currency.
func NewExchange(delegate core.IExchange, cfg Config) *Exchange {
	if cfg.HomeCurrency == "" {
		cfg.HomeCurrency = "USD"
	}
	e := &Exchange{
		delegate: delegate,
		cfg:      cfg,
		balances: make(map[string]decimal.Decimal),
		orders:   make(map[string]*core.Order),
	}
	e.balances[cfg.HomeCurrency] = cfg.InitialBalance
	return e
}

func (e *Exchange) GetName() string { return e.delegate.GetName() }

func (e *Exchange) GetTicker(ctx context.Context, pair core.CurrencyPair) (core.Ticker, error) {
	return e.delegate.GetTicker(ctx, pair)
}

func (e *Exchange) GetTickers(ctx context.Context, pairs []core.CurrencyPair) ([]core.Ticker, error) {
	return e.delegate.GetTickers(ctx, pairs)
}

func (e *Exchange) GetOrderBook(ctx context.Context, pair core.CurrencyPair) (core.OrderBook, error) {
	return e.delegate.GetOrderBook(ctx, pair)
}

// GetTradingFee returns the configured simulated fee, mirroring how the
// engine would look fees up on the real venue.
func (e *Exchange) GetTradingFee(ctx context.Context, pair core.CurrencyPair) (core.ExchangeFee, error) {
	return e.cfg.Fee, nil
}

// GetBalance re-evaluates pending fills first so the reported ledger is
// current.
func (e *Exchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateFills(ctx)
	return e.balances[currency], nil
}

// PlaceLimitOrder validates funds before accepting the order. A margin
// account may sell base currency it does not hold; a cash account may
// not.
func (e *Exchange) PlaceLimitOrder(ctx context.Context, side core.Side, pair core.CurrencyPair, volume, limitPrice decimal.Decimal) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateFills(ctx)

	if side == core.SideBuy {
		cost := volume.Mul(limitPrice)
		cost = cost.Add(cost.Mul(e.cfg.Fee.Total()))
		if e.balances[pair.Counter].LessThan(cost) && !e.cfg.Margin {
			return "", core.ErrInsufficientFunds
		}
	} else {
		if e.balances[pair.Base].LessThan(volume) && !e.cfg.Margin {
			return "", core.ErrInsufficientFunds
		}
	}

	id := uuid.NewString()
	e.orders[id] = &core.Order{
		ID:         id,
		Pair:       pair,
		Side:       side,
		Status:     core.OrderStatusNew,
		LimitPrice: limitPrice,
		Volume:     volume,
		CreatedAt:  time.Now(),
	}

	e.evaluateFills(ctx)
	return id, nil
}

func (e *Exchange) CancelOrder(ctx context.Context, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return core.ErrOrderNotFound
	}
	if o.Status == core.OrderStatusNew {
		o.Status = core.OrderStatusCanceled
	}
	return nil
}

// GetOrder re-evaluates fills first so queries observe current state
func (e *Exchange) GetOrder(ctx context.Context, orderID string) (core.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateFills(ctx)
	o, ok := e.orders[orderID]
	if !ok {
		return core.Order{}, core.ErrOrderNotFound
	}
	return *o, nil
}

// GetOpenOrders re-evaluates fills first so queries observe current state
func (e *Exchange) GetOpenOrders(ctx context.Context) ([]core.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateFills(ctx)
	var open []core.Order
	for _, o := range e.orders {
		if o.Status == core.OrderStatusNew {
			open = append(open, *o)
		}
	}
	return open, nil
}

// Trades returns every synthetic fill so far
func (e *Exchange) Trades() []TradeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TradeRecord, len(e.trades))
	copy(out, e.trades)
	return out
}

// evaluateFills settles any open order whose limit price is met. With
// auto-fill the limit is considered met immediately. Caller holds the
// lock.
func (e *Exchange) evaluateFills(ctx context.Context) {
	for _, o := range e.orders {
		if o.Status != core.OrderStatusNew {
			continue
		}

		fillPrice := o.LimitPrice
		if !e.cfg.AutoFill {
			t, err := e.delegate.GetTicker(ctx, o.Pair)
			if err != nil || !t.IsValid() {
				continue
			}
			if o.Side == core.SideBuy && t.Ask.GreaterThan(o.LimitPrice) {
				continue
			}
			if o.Side == core.SideSell && t.Bid.LessThan(o.LimitPrice) {
				continue
			}
		}

		e.settle(o, fillPrice)
	}
}

// settle moves money for one fill. Fees are always charged against the
// counter currency. Caller holds the lock.
func (e *Exchange) settle(o *core.Order, price decimal.Decimal) {
	notional := o.Volume.Mul(price)
	fee := notional.Mul(e.cfg.Fee.Total())

	base, counter := o.Pair.Base, o.Pair.Counter
	if o.Side == core.SideBuy {
		e.balances[base] = e.balances[base].Add(o.Volume)
		e.balances[counter] = e.balances[counter].Sub(notional).Sub(fee)
	} else {
		e.balances[base] = e.balances[base].Sub(o.Volume)
		e.balances[counter] = e.balances[counter].Add(notional).Sub(fee)
	}

	o.Status = core.OrderStatusFilled
	o.FilledVolume = o.Volume

	e.trades = append(e.trades, TradeRecord{
		OrderID:  o.ID,
		Pair:     o.Pair,
		Side:     o.Side,
		Price:    price,
		Volume:   o.Volume,
		Fee:      fee,
		FilledAt: time.Now(),
	})
}

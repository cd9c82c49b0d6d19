package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// MockExchange implements core.IExchange for testing
type MockExchange struct {
	name string

	mu             sync.RWMutex
	tickers        map[core.CurrencyPair]core.Ticker
	orderBooks     map[core.CurrencyPair]core.OrderBook
	balances       map[string]decimal.Decimal
	fee            core.ExchangeFee
	orders         map[string]*core.Order
	orderIDCounter int

	// failure injection
	BatchUnsupported bool
	TickerErr        error
	PlaceOrderErr    error
	GetOrderErr      error
	FeeErr           error

	// fills orders immediately when true
	AutoFill bool

	BatchCalls    int
	TickerCalls   int
	GetOrderCalls int
}

// NewExchange creates a mock exchange seeded with nothing
func NewExchange(name string) *MockExchange {
	return &MockExchange{
		name:       name,
		tickers:    make(map[core.CurrencyPair]core.Ticker),
		orderBooks: make(map[core.CurrencyPair]core.OrderBook),
		balances:   make(map[string]decimal.Decimal),
		orders:     make(map[string]*core.Order),
		AutoFill:   true,
	}
}

func (m *MockExchange) GetName() string { return m.name }

// SetTicker seeds the quoted prices for a pair
func (m *MockExchange) SetTicker(pair core.CurrencyPair, bid, ask decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickers[pair] = core.Ticker{
		Exchange:  m.name,
		Pair:      pair,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
	// deep book at the quoted prices unless a book was seeded explicitly
	if _, ok := m.orderBooks[pair]; !ok || len(m.orderBooks[pair].Asks) == 0 {
		depth := decimal.NewFromInt(1_000_000)
		m.orderBooks[pair] = core.OrderBook{
			Bids: []core.OrderBookEntry{{Price: bid, Volume: depth}},
			Asks: []core.OrderBookEntry{{Price: ask, Volume: depth}},
		}
	}
}

// SetOrderBook seeds explicit book depth for a pair
func (m *MockExchange) SetOrderBook(pair core.CurrencyPair, book core.OrderBook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderBooks[pair] = book
}

// SetBalance seeds the balance of one currency
func (m *MockExchange) SetBalance(currency string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[currency] = amount
}

// SetFee seeds the trading fee returned by GetTradingFee
func (m *MockExchange) SetFee(fee core.ExchangeFee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fee = fee
}

func (m *MockExchange) GetTicker(ctx context.Context, pair core.CurrencyPair) (core.Ticker, error) {
	m.mu.Lock()
	m.TickerCalls++
	m.mu.Unlock()

	if m.TickerErr != nil {
		return core.Ticker{}, m.TickerErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickers[pair]
	if !ok {
		return core.Ticker{}, fmt.Errorf("no ticker for %s", pair)
	}
	return t, nil
}

func (m *MockExchange) GetTickers(ctx context.Context, pairs []core.CurrencyPair) ([]core.Ticker, error) {
	m.mu.Lock()
	m.BatchCalls++
	m.mu.Unlock()

	if m.BatchUnsupported {
		return nil, core.ErrBatchTickersUnsupported
	}
	if m.TickerErr != nil {
		return nil, m.TickerErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Ticker, 0, len(pairs))
	for _, p := range pairs {
		if t, ok := m.tickers[p]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockExchange) GetOrderBook(ctx context.Context, pair core.CurrencyPair) (core.OrderBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	book, ok := m.orderBooks[pair]
	if !ok {
		return core.OrderBook{}, fmt.Errorf("no order book for %s", pair)
	}
	return book, nil
}

func (m *MockExchange) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[currency], nil
}

func (m *MockExchange) GetTradingFee(ctx context.Context, pair core.CurrencyPair) (core.ExchangeFee, error) {
	if m.FeeErr != nil {
		return core.ExchangeFee{}, m.FeeErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fee, nil
}

func (m *MockExchange) PlaceLimitOrder(ctx context.Context, side core.Side, pair core.CurrencyPair, volume, limitPrice decimal.Decimal) (string, error) {
	if m.PlaceOrderErr != nil {
		return "", m.PlaceOrderErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.orderIDCounter++
	id := fmt.Sprintf("%s-order-%d", m.name, m.orderIDCounter)

	status := core.OrderStatusNew
	filled := decimal.Zero
	if m.AutoFill {
		status = core.OrderStatusFilled
		filled = volume
	}

	m.orders[id] = &core.Order{
		ID:           id,
		Pair:         pair,
		Side:         side,
		Status:       status,
		LimitPrice:   limitPrice,
		Volume:       volume,
		FilledVolume: filled,
		CreatedAt:    time.Now(),
	}
	return id, nil
}

func (m *MockExchange) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return core.ErrOrderNotFound
	}
	o.Status = core.OrderStatusCanceled
	return nil
}

func (m *MockExchange) GetOrder(ctx context.Context, orderID string) (core.Order, error) {
	m.mu.Lock()
	m.GetOrderCalls++
	m.mu.Unlock()

	if m.GetOrderErr != nil {
		return core.Order{}, m.GetOrderErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return core.Order{}, core.ErrOrderNotFound
	}
	return *o, nil
}

func (m *MockExchange) GetOpenOrders(ctx context.Context) ([]core.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var open []core.Order
	for _, o := range m.orders {
		if o.Status == core.OrderStatusNew {
			open = append(open, *o)
		}
	}
	return open, nil
}

// PlacedOrders returns every order the mock has accepted, for assertions
func (m *MockExchange) PlacedOrders() []core.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out
}

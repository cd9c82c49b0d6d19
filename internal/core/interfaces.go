// Package core defines the shared types and interfaces of the trading engine
package core

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the gateway boundary.
var (
	// ErrBatchTickersUnsupported is returned by GetTickers when the exchange
	// cannot serve a single batched ticker call.
	ErrBatchTickersUnsupported = errors.New("batched ticker fetch not supported")

	// ErrInsufficientFunds rejects an order whose cost exceeds the available
	// balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDynamicFeeUnsupported is returned by GetTradingFee when the exchange
	// does not expose a per-account fee schedule.
	ErrDynamicFeeUnsupported = errors.New("dynamic fee lookup not supported")

	// ErrOrderNotFound is returned by GetOrder for unknown order ids.
	ErrOrderNotFound = errors.New("order not found")
)

// IExchange is the gateway contract the engine consumes. Implementations
// talk to a real venue or to the paper simulation; the engine never cares
// which.
type IExchange interface {
	GetName() string

	// Market data
	GetTicker(ctx context.Context, pair CurrencyPair) (Ticker, error)
	// GetTickers fetches all requested pairs in one call. Exchanges without
	// that capability return ErrBatchTickersUnsupported.
	GetTickers(ctx context.Context, pairs []CurrencyPair) ([]Ticker, error)
	GetOrderBook(ctx context.Context, pair CurrencyPair) (OrderBook, error)

	// Account
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	// GetTradingFee returns the account's fee schedule for the pair, or
	// ErrDynamicFeeUnsupported when the venue has no such endpoint.
	GetTradingFee(ctx context.Context, pair CurrencyPair) (ExchangeFee, error)

	// Orders
	PlaceLimitOrder(ctx context.Context, side Side, pair CurrencyPair, volume, limitPrice decimal.Decimal) (string, error)
	CancelOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (Order, error)
	GetOpenOrders(ctx context.Context) ([]Order, error)
}

// EntryNotification carries the details of a freshly opened position.
type EntryNotification struct {
	Combination     TradeCombination
	EntrySpread     decimal.Decimal
	ExitTarget      decimal.Decimal
	LongVolume      decimal.Decimal
	ShortVolume     decimal.Decimal
	LongLimitPrice  decimal.Decimal
	ShortLimitPrice decimal.Decimal
}

// ExitNotification carries the details of a closed position.
type ExitNotification struct {
	Combination     TradeCombination
	ExitSpread      decimal.Decimal
	LongVolume      decimal.Decimal
	ShortVolume     decimal.Decimal
	LongLimitPrice  decimal.Decimal
	ShortLimitPrice decimal.Decimal
	EntryBalance    decimal.Decimal
	UpdatedBalance  decimal.Decimal
}

// INotifier is the fire-and-forget notification sink. Implementations must
// never block the trading path.
type INotifier interface {
	NotifyEntry(n EntryNotification)
	NotifyExit(n ExitNotification)
}

// ILogger is the logging facade used throughout the engine.
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

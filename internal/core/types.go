package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// FeeComputation describes who accounts for the trading fee of an order.
// SERVER means the exchange deducts the fee from the filled amount on its
// own; CLIENT means the caller must pre-adjust the order size so the net
// filled amount matches the intended volume.
type FeeComputation string

const (
	FeeComputationServer FeeComputation = "SERVER"
	FeeComputationClient FeeComputation = "CLIENT"
)

// ParseFeeComputation parses a fee computation mode from its config spelling.
// An empty string defaults to SERVER.
func ParseFeeComputation(s string) (FeeComputation, error) {
	switch strings.ToUpper(s) {
	case "", string(FeeComputationServer):
		return FeeComputationServer, nil
	case string(FeeComputationClient):
		return FeeComputationClient, nil
	}
	return "", fmt.Errorf("invalid fee computation mode: %s", s)
}

// CurrencyPair is a base/counter currency pair such as BTC/USD.
type CurrencyPair struct {
	Base    string
	Counter string
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Counter
}

// ParseCurrencyPair parses "BASE/COUNTER".
func ParseCurrencyPair(s string) (CurrencyPair, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return CurrencyPair{}, fmt.Errorf("invalid currency pair: %s", s)
	}
	return CurrencyPair{Base: strings.ToUpper(parts[0]), Counter: strings.ToUpper(parts[1])}, nil
}

// MarshalText makes pairs serialize as "BTC/USD" in JSON and YAML.
func (p CurrencyPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *CurrencyPair) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrencyPair(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// TradeCombination identifies one tradable opportunity: buy on the long
// exchange, sell short on the short exchange. Equal by value; usable as a
// map key.
type TradeCombination struct {
	LongExchange  string
	ShortExchange string
	Pair          CurrencyPair
}

func (c TradeCombination) String() string {
	return fmt.Sprintf("%s/%s %s", c.LongExchange, c.ShortExchange, c.Pair)
}

// Ticker is a best bid/ask snapshot for a pair on one exchange.
type Ticker struct {
	Exchange  string
	Pair      CurrencyPair
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

// IsValid reports whether the ticker carries usable prices.
func (t *Ticker) IsValid() bool {
	return t != nil && t.Bid.IsPositive() && t.Ask.IsPositive()
}

// OrderBookEntry is one price level of an order book side.
type OrderBookEntry struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// OrderBook holds the visible depth for a pair, best prices first.
type OrderBook struct {
	Pair CurrencyPair
	Bids []OrderBookEntry
	Asks []OrderBookEntry
}

// Order is the gateway view of a placed order.
type Order struct {
	ID           string
	Pair         CurrencyPair
	Side         Side
	Status       OrderStatus
	LimitPrice   decimal.Decimal
	Volume       decimal.Decimal
	FilledVolume decimal.Decimal
	CreatedAt    time.Time
}

// ExchangeFee is the fee schedule for one (exchange, pair). The margin fee
// is only present for exchanges configured for margin/short trading.
type ExchangeFee struct {
	TradeFee  decimal.Decimal
	MarginFee *decimal.Decimal
}

// Total returns trade fee plus margin fee when present.
func (f ExchangeFee) Total() decimal.Decimal {
	if f.MarginFee != nil {
		return f.TradeFee.Add(*f.MarginFee)
	}
	return f.TradeFee
}

// Spread is the per-tick view of one combination: the two ticker snapshots
// and the entry (In) and exit (Out) spread values derived from them.
// Recomputed every tick, never persisted.
type Spread struct {
	Combination TradeCombination
	LongTicker  Ticker
	ShortTicker Ticker
	In          decimal.Decimal
	Out         decimal.Decimal
}

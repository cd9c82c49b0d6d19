// Package state persists the single active position across restarts.
package state

import (
	"time"

	"github.com/shopspring/decimal"

	"spread_trader/internal/core"
)

// Trade is one leg of an active position
type Trade struct {
	Exchange string          `json:"exchange"`
	OrderID  string          `json:"orderId"`
	Volume   decimal.Decimal `json:"volume"`
	Entry    decimal.Decimal `json:"entry"`
}

// ActivePosition is the one durable unit of engine state. It exists from
// the moment both entry orders are placed until both exit orders are
// placed, and is rewritten on every mutation.
type ActivePosition struct {
	CurrencyPair core.CurrencyPair `json:"currencyPair"`
	ExitTarget   decimal.Decimal   `json:"exitTarget"`
	EntryBalance decimal.Decimal   `json:"entryBalance"`
	EntryTime    time.Time         `json:"entryTime"`
	LongTrade    Trade             `json:"longTrade"`
	ShortTrade   Trade             `json:"shortTrade"`
}

// Combination reconstructs the trade combination this position is on
func (p *ActivePosition) Combination() core.TradeCombination {
	return core.TradeCombination{
		LongExchange:  p.LongTrade.Exchange,
		ShortExchange: p.ShortTrade.Exchange,
		Pair:          p.CurrencyPair,
	}
}

// Age returns how long the position has been open
func (p *ActivePosition) Age(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// ClearOrderIDs nulls both order ids, done while closing the position
func (p *ActivePosition) ClearOrderIDs() {
	p.LongTrade.OrderID = ""
	p.ShortTrade.OrderID = ""
}

// Store persists at most one ActivePosition. Load returning (nil, nil)
// means no position exists, which is the normal idle state.
type Store interface {
	Load() (*ActivePosition, error)
	Save(position *ActivePosition) error
	Delete() error
}

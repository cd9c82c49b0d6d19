// Package cache provides the small in-memory caches that keep slow exchange
// queries off the hot tick path.
package cache

import (
	"sync"

	"spread_trader/internal/core"
)

// FeeCache memoizes per-exchange trading fees. Fees change rarely enough
// that entries are kept for the lifetime of the process.
type FeeCache struct {
	mu   sync.RWMutex
	fees map[string]core.ExchangeFee
}

// NewFeeCache creates an empty fee cache
func NewFeeCache() *FeeCache {
	return &FeeCache{
		fees: make(map[string]core.ExchangeFee),
	}
}

// Get returns the cached fee for an exchange, if present
func (c *FeeCache) Get(exchange string) (core.ExchangeFee, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fee, ok := c.fees[exchange]
	return fee, ok
}

// Put stores the fee for an exchange
func (c *FeeCache) Put(exchange string, fee core.ExchangeFee) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fees[exchange] = fee
}

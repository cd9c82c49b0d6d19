package cache

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalanceTTL is how long a cached balance stays valid. Balances only
// change when the engine itself trades, so a short TTL is enough.
const DefaultBalanceTTL = 60 * time.Second

type balanceEntry struct {
	balance   decimal.Decimal
	fetchedAt time.Time
}

// BalanceCache caches per-exchange combined balances with a TTL. Expired
// entries behave exactly like absent ones.
type BalanceCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]balanceEntry
	now     func() time.Time
}

// NewBalanceCache creates a balance cache with the given TTL.
// A non-positive TTL falls back to DefaultBalanceTTL.
func NewBalanceCache(ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &BalanceCache{
		ttl:     ttl,
		entries: make(map[string]balanceEntry),
		now:     time.Now,
	}
}

// Get returns the cached balance for an exchange if it has not expired
func (c *BalanceCache) Get(exchange string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[exchange]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return decimal.Zero, false
	}
	return entry.balance, true
}

// Put stores the balance for an exchange, stamped with the current time
func (c *BalanceCache) Put(exchange string, balance decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[exchange] = balanceEntry{balance: balance, fetchedAt: c.now()}
}

// Invalidate drops the cached balance for an exchange. Called after every
// order placement so the next read reflects the trade.
func (c *BalanceCache) Invalidate(exchange string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, exchange)
}

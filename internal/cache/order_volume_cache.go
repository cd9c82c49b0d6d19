package cache

import (
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultOrderVolumeCapacity bounds the order volume cache. Only the orders
// of the currently open position matter, so a small window is plenty.
const DefaultOrderVolumeCapacity = 20

// OrderVolumeCache remembers the volumes of recently placed orders so exits
// can unwind exactly what was entered even when the venue no longer reports
// the order. When full, the oldest entry is evicted first.
type OrderVolumeCache struct {
	mu       sync.Mutex
	capacity int
	volumes  map[string]decimal.Decimal
	order    []string
}

// NewOrderVolumeCache creates a bounded FIFO cache.
// A non-positive capacity falls back to DefaultOrderVolumeCapacity.
func NewOrderVolumeCache(capacity int) *OrderVolumeCache {
	if capacity <= 0 {
		capacity = DefaultOrderVolumeCapacity
	}
	return &OrderVolumeCache{
		capacity: capacity,
		volumes:  make(map[string]decimal.Decimal),
	}
}

// Get returns the recorded volume for an order id, if still cached
func (c *OrderVolumeCache) Get(orderID string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.volumes[orderID]
	return v, ok
}

// Put records the volume for an order id, evicting the oldest entry when full
func (c *OrderVolumeCache) Put(orderID string, volume decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.volumes[orderID]; exists {
		c.volumes[orderID] = volume
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.volumes, oldest)
	}

	c.volumes[orderID] = volume
	c.order = append(c.order, orderID)
}

// Len returns the number of cached entries
func (c *OrderVolumeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.volumes)
}

// Package ticker fetches and caches market quotes per exchange.
package ticker

import (
	"sync"

	"spread_trader/internal/core"
)

// Store holds the latest ticker per (exchange, pair). It is written from
// the tick loop and, for streaming venues, from websocket handlers, so
// all access is locked.
type Store struct {
	mu      sync.RWMutex
	tickers map[string]map[core.CurrencyPair]core.Ticker
}

// NewStore creates an empty ticker store
func NewStore() *Store {
	return &Store{
		tickers: make(map[string]map[core.CurrencyPair]core.Ticker),
	}
}

// Put stores the latest ticker for its exchange and pair
func (s *Store) Put(t core.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPair, ok := s.tickers[t.Exchange]
	if !ok {
		byPair = make(map[core.CurrencyPair]core.Ticker)
		s.tickers[t.Exchange] = byPair
	}
	byPair[t.Pair] = t
}

// Get returns the latest ticker for an exchange and pair
func (s *Store) Get(exchange string, pair core.CurrencyPair) (core.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickers[exchange][pair]
	return t, ok
}

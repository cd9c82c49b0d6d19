package ticker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"spread_trader/internal/core"
	"spread_trader/internal/mock"
	"spread_trader/pkg/concurrency"
	"spread_trader/pkg/logging"
	"spread_trader/pkg/telemetry"
)

var btcusd = core.CurrencyPair{Base: "BTC", Counter: "USD"}
var ethusd = core.CurrencyPair{Base: "ETH", Counter: "USD"}

func testMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(prometheus.NewRegistry())
}

func testPool(t *testing.T) *concurrency.WorkerPool {
	t.Helper()
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:       "test",
		MaxWorkers: 4,
	}, logging.NewNop())
	t.Cleanup(pool.Stop)
	return pool
}

func TestStorePutGet(t *testing.T) {
	store := NewStore()

	_, ok := store.Get("alpha", btcusd)
	assert.False(t, ok)

	store.Put(core.Ticker{Exchange: "alpha", Pair: btcusd, Bid: decimal.NewFromInt(99), Ask: decimal.NewFromInt(100)})

	got, ok := store.Get("alpha", btcusd)
	require.True(t, ok)
	assert.True(t, got.Bid.Equal(decimal.NewFromInt(99)))
}

func TestBatchedStrategyFetch(t *testing.T) {
	ex := mock.NewExchange("alpha")
	ex.SetTicker(btcusd, decimal.NewFromInt(99), decimal.NewFromInt(100))
	ex.SetTicker(ethusd, decimal.NewFromInt(9), decimal.NewFromInt(10))
	store := NewStore()

	s := NewBatchedStrategy(ex, store, logging.NewNop(), testMetrics(), time.Second)
	require.NoError(t, s.Fetch(context.Background(), []core.CurrencyPair{btcusd, ethusd}))

	_, ok := store.Get("alpha", btcusd)
	assert.True(t, ok)
	_, ok = store.Get("alpha", ethusd)
	assert.True(t, ok)
}

func TestParallelStrategyDropsFailedPairs(t *testing.T) {
	ex := mock.NewExchange("alpha")
	ex.SetTicker(btcusd, decimal.NewFromInt(99), decimal.NewFromInt(100))
	// ETH is never seeded so its fetch fails
	store := NewStore()

	s := NewParallelStrategy(ex, store, testPool(t), rate.NewLimiter(rate.Inf, 1),
		logging.NewNop(), testMetrics(), time.Second)
	require.NoError(t, s.Fetch(context.Background(), []core.CurrencyPair{btcusd, ethusd}))

	_, ok := store.Get("alpha", btcusd)
	assert.True(t, ok)
	_, ok = store.Get("alpha", ethusd)
	assert.False(t, ok)
}

func TestSelectStrategyPrefersBatching(t *testing.T) {
	ex := mock.NewExchange("alpha")
	ex.SetTicker(btcusd, decimal.NewFromInt(99), decimal.NewFromInt(100))

	s := SelectStrategy(context.Background(), ex, []core.CurrencyPair{btcusd}, NewStore(),
		testPool(t), rate.NewLimiter(rate.Inf, 1), logging.NewNop(), testMetrics(), time.Second)

	_, ok := s.(*BatchedStrategy)
	assert.True(t, ok)
}

func TestSelectStrategyFallsBackToParallel(t *testing.T) {
	ex := mock.NewExchange("alpha")
	ex.BatchUnsupported = true

	s := SelectStrategy(context.Background(), ex, []core.CurrencyPair{btcusd}, NewStore(),
		testPool(t), rate.NewLimiter(rate.Inf, 1), logging.NewNop(), testMetrics(), time.Second)

	_, ok := s.(*ParallelStrategy)
	assert.True(t, ok)
}

func TestStreamingHandleMessage(t *testing.T) {
	store := NewStore()
	s := &StreamingStrategy{
		exchange: "charlie",
		store:    store,
		logger:   logging.NewNop(),
	}

	s.handleMessage([]byte(`{"pair":"BTC/USD","bid":"99.5","ask":"100.5","ts":1756600000000}`))

	got, ok := store.Get("charlie", btcusd)
	require.True(t, ok)
	assert.True(t, got.Bid.Equal(decimal.RequireFromString("99.5")))
	assert.True(t, got.Ask.Equal(decimal.RequireFromString("100.5")))

	// malformed frames are dropped without effect
	s.handleMessage([]byte(`{"pair":"BTCUSD"`))
	s.handleMessage([]byte(`{"pair":"BTCUSD","bid":"1","ask":"2"}`))
	_, ok = store.Get("charlie", ethusd)
	assert.False(t, ok)
}

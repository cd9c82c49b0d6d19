package ticker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"spread_trader/internal/core"
	"spread_trader/pkg/concurrency"
	"spread_trader/pkg/telemetry"
)

// FetchStrategy refreshes the store with current quotes for one
// exchange. Streaming venues make this a no-op because quotes arrive
// asynchronously.
type FetchStrategy interface {
	Fetch(ctx context.Context, pairs []core.CurrencyPair) error
}

// BatchedStrategy fetches all pairs in a single gateway call
type BatchedStrategy struct {
	exchange      core.IExchange
	store         *Store
	logger        core.ILogger
	metrics       *telemetry.Metrics
	latencyBudget time.Duration
}

// NewBatchedStrategy creates the single-call strategy
func NewBatchedStrategy(exchange core.IExchange, store *Store, logger core.ILogger, metrics *telemetry.Metrics, latencyBudget time.Duration) *BatchedStrategy {
	return &BatchedStrategy{
		exchange:      exchange,
		store:         store,
		logger:        logger,
		metrics:       metrics,
		latencyBudget: latencyBudget,
	}
}

func (s *BatchedStrategy) Fetch(ctx context.Context, pairs []core.CurrencyPair) error {
	start := time.Now()
	tickers, err := s.exchange.GetTickers(ctx, pairs)
	if err != nil {
		s.metrics.TickerErrors.WithLabelValues(s.exchange.GetName()).Inc()
		return err
	}
	for _, t := range tickers {
		s.store.Put(t)
	}
	s.metrics.TickerFetches.WithLabelValues(s.exchange.GetName()).Inc()
	warnIfSlow(s.logger, s.exchange.GetName(), time.Since(start), s.latencyBudget)
	return nil
}

// ParallelStrategy fans out one throttled call per pair. Failures on
// individual pairs are logged and dropped so one bad pair never blanks
// the whole exchange.
type ParallelStrategy struct {
	exchange      core.IExchange
	store         *Store
	pool          *concurrency.WorkerPool
	limiter       *rate.Limiter
	logger        core.ILogger
	metrics       *telemetry.Metrics
	latencyBudget time.Duration
}

// NewParallelStrategy creates the per-pair concurrent strategy
func NewParallelStrategy(exchange core.IExchange, store *Store, pool *concurrency.WorkerPool, limiter *rate.Limiter, logger core.ILogger, metrics *telemetry.Metrics, latencyBudget time.Duration) *ParallelStrategy {
	return &ParallelStrategy{
		exchange:      exchange,
		store:         store,
		pool:          pool,
		limiter:       limiter,
		logger:        logger,
		metrics:       metrics,
		latencyBudget: latencyBudget,
	}
}

func (s *ParallelStrategy) Fetch(ctx context.Context, pairs []core.CurrencyPair) error {
	start := time.Now()
	group := s.pool.Group()
	for _, pair := range pairs {
		group.Submit(func() {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			t, err := s.exchange.GetTicker(ctx, pair)
			if err != nil {
				s.metrics.TickerErrors.WithLabelValues(s.exchange.GetName()).Inc()
				s.logger.Warn("Ticker fetch failed",
					"exchange", s.exchange.GetName(),
					"pair", pair.String(),
					"error", err)
				return
			}
			s.store.Put(t)
		})
	}
	group.Wait()
	s.metrics.TickerFetches.WithLabelValues(s.exchange.GetName()).Inc()
	warnIfSlow(s.logger, s.exchange.GetName(), time.Since(start), s.latencyBudget)
	return nil
}

// SelectStrategy probes the exchange once and returns the best fetch
// strategy it supports. Batching is preferred when available.
func SelectStrategy(ctx context.Context, exchange core.IExchange, pairs []core.CurrencyPair, store *Store, pool *concurrency.WorkerPool, limiter *rate.Limiter, logger core.ILogger, metrics *telemetry.Metrics, latencyBudget time.Duration) FetchStrategy {
	_, err := exchange.GetTickers(ctx, pairs)
	if errors.Is(err, core.ErrBatchTickersUnsupported) {
		logger.Info("Batch tickers unsupported, using per-pair fetches", "exchange", exchange.GetName())
		return NewParallelStrategy(exchange, store, pool, limiter, logger, metrics, latencyBudget)
	}
	return NewBatchedStrategy(exchange, store, logger, metrics, latencyBudget)
}

func warnIfSlow(logger core.ILogger, exchange string, elapsed, budget time.Duration) {
	if budget > 0 && elapsed > budget {
		logger.Warn("Ticker fetch exceeded latency budget",
			"exchange", exchange,
			"elapsed_ms", elapsed.Milliseconds(),
			"budget_ms", budget.Milliseconds())
	}
}

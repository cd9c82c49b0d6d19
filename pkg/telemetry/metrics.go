// Package telemetry exposes Prometheus metrics for the trading engine
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the engine publishes
type Metrics struct {
	EntrySpread     *prometheus.GaugeVec
	ExitSpread      *prometheus.GaugeVec
	TickDuration    prometheus.Histogram
	TickerFetches   *prometheus.CounterVec
	TickerErrors    *prometheus.CounterVec
	PositionsOpened prometheus.Counter
	PositionsClosed prometheus.Counter
	MissedTrades    prometheus.Gauge
	Profit          prometheus.Gauge
	BailOut         prometheus.Gauge
}

var (
	global *Metrics
	once   sync.Once
)

// GetGlobalMetrics returns the process-wide metrics set, registering the
// collectors on first use.
func GetGlobalMetrics() *Metrics {
	once.Do(func() {
		global = newMetrics(prometheus.DefaultRegisterer)
	})
	return global
}

// NewMetrics registers a fresh collector set on the given registerer.
// Tests use this with a private registry to avoid collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EntrySpread: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trader_entry_spread",
			Help: "Current entry spread per trade combination",
		}, []string{"long_exchange", "short_exchange", "pair"}),
		ExitSpread: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trader_exit_spread",
			Help: "Current exit spread per trade combination",
		}, []string{"long_exchange", "short_exchange", "pair"}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_tick_duration_seconds",
			Help:    "Duration of one full tick evaluation",
			Buckets: prometheus.DefBuckets,
		}),
		TickerFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_ticker_fetches_total",
			Help: "Total ticker fetches per exchange",
		}, []string{"exchange"}),
		TickerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_ticker_errors_total",
			Help: "Total failed ticker fetches per exchange",
		}, []string{"exchange"}),
		PositionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "trader_positions_opened_total",
			Help: "Total positions opened",
		}),
		PositionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "trader_positions_closed_total",
			Help: "Total positions closed",
		}),
		MissedTrades: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trader_missed_trades",
			Help: "Combinations currently above the entry target while another position is open",
		}),
		Profit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trader_last_profit",
			Help: "Combined-balance profit of the last closed position",
		}),
		BailOut: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trader_bail_out",
			Help: "1 when the engine flagged a fatal partial execution",
		}),
	}
}

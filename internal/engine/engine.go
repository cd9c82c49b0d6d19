// Package engine implements the tick-driven position state machine that
// watches spreads across exchange pairs and trades them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spread_trader/internal/cache"
	"spread_trader/internal/config"
	"spread_trader/internal/core"
	"spread_trader/internal/journal"
	"spread_trader/internal/state"
	"spread_trader/internal/ticker"
	"spread_trader/internal/trading/spread"
	"spread_trader/pkg/telemetry"
)

var (
	// ErrBailOut signals a fatal partial execution; the process must stop
	// and leave the book to manual intervention.
	ErrBailOut = errors.New("bail out: partial paired execution, manual intervention required")

	// ErrIdleExit signals that the exit-when-idle sentinel was honored.
	ErrIdleExit = errors.New("exit requested while idle")
)

// Engine evaluates every trade combination once per tick. Exactly zero
// or one position is open at any time. Ticks must not run concurrently;
// the caller serializes them.
type Engine struct {
	logger core.ILogger
	cfg    *config.Config

	exchanges   map[string]core.IExchange
	exchangeCfg map[string]config.ExchangeConfig

	combinations []core.TradeCombination
	pairs        []core.CurrencyPair

	tickers    *ticker.Store
	strategies map[string]ticker.FetchStrategy
	spreads    *spread.Calculator

	fees         *cache.FeeCache
	balances     *cache.BalanceCache
	orderVolumes *cache.OrderVolumeCache

	store    state.Store
	journal  journal.Journal
	notifier core.INotifier
	metrics  *telemetry.Metrics

	position     *state.ActivePosition
	missedTrades map[core.TradeCombination]decimal.Decimal
	bailOut      bool

	now func() time.Time
}

// Deps bundles the engine's collaborators
type Deps struct {
	Logger     core.ILogger
	Config     *config.Config
	Exchanges  map[string]core.IExchange
	Tickers    *ticker.Store
	Strategies map[string]ticker.FetchStrategy
	Store      state.Store
	Journal    journal.Journal
	Notifier   core.INotifier
	Metrics    *telemetry.Metrics
}

// New builds the engine and enumerates every long/short/pair combination
// from the configured exchanges. Only margin-capable exchanges can host
// the short leg, and a combination never spans one exchange twice.
func New(deps Deps) (*Engine, error) {
	pairs := make([]core.CurrencyPair, 0, len(deps.Config.Trading.Pairs))
	for _, raw := range deps.Config.Trading.Pairs {
		pair, err := core.ParseCurrencyPair(raw)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	var combinations []core.TradeCombination
	for longName := range deps.Exchanges {
		for shortName := range deps.Exchanges {
			if longName == shortName || !deps.Config.Exchanges[shortName].Margin {
				continue
			}
			for _, pair := range pairs {
				combinations = append(combinations, core.TradeCombination{
					LongExchange:  longName,
					ShortExchange: shortName,
					Pair:          pair,
				})
			}
		}
	}

	e := &Engine{
		logger:       deps.Logger.WithField("component", "engine"),
		cfg:          deps.Config,
		exchanges:    deps.Exchanges,
		exchangeCfg:  deps.Config.Exchanges,
		combinations: combinations,
		pairs:        pairs,
		tickers:      deps.Tickers,
		strategies:   deps.Strategies,
		spreads:      spread.NewCalculator(deps.Logger),
		fees:         cache.NewFeeCache(),
		balances:     cache.NewBalanceCache(cache.DefaultBalanceTTL),
		orderVolumes: cache.NewOrderVolumeCache(cache.DefaultOrderVolumeCapacity),
		store:        deps.Store,
		journal:      deps.Journal,
		notifier:     deps.Notifier,
		metrics:      deps.Metrics,
		missedTrades: make(map[core.TradeCombination]decimal.Decimal),
		now:          time.Now,
	}

	position, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	if position != nil {
		e.position = position
		e.logger.Info("Resuming active position",
			"combination", position.Combination().String(),
			"entry_time", position.EntryTime)
	}

	return e, nil
}

// Tick runs one full evaluation. It returns ErrBailOut after a fatal
// partial execution and ErrIdleExit when the exit-when-idle sentinel is
// set with no open position; both mean the caller should stop trading.
func (e *Engine) Tick(ctx context.Context) error {
	if e.bailOut {
		return ErrBailOut
	}

	start := e.now()
	defer func() {
		e.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	e.fetchTickers(ctx)

	forceClose := fileExists(e.cfg.App.ForceCloseFile)
	if e.position == nil && fileExists(e.cfg.App.ExitWhenIdleFile) {
		e.logger.Info("No open position and exit-when-idle is set, stopping")
		// consume the sentinel so the next start does not exit again
		if err := os.Remove(e.cfg.App.ExitWhenIdleFile); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("Could not remove exit-when-idle file", "error", err)
		}
		return ErrIdleExit
	}

	// randomized order so earlier-listed combinations get no standing
	// advantage in claiming an opportunity
	shuffled := make([]core.TradeCombination, len(e.combinations))
	copy(shuffled, e.combinations)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	for _, combo := range shuffled {
		if err := e.evaluateSafe(ctx, combo, forceClose); err != nil {
			if e.bailOut {
				e.metrics.BailOut.Set(1)
				e.logger.Error("Fatal partial execution, bailing out",
					"combination", combo.String(), "error", err)
				return ErrBailOut
			}
			// everything else stays contained to this combination
			e.logger.Error("Combination evaluation failed",
				"combination", combo.String(), "error", err)
		}
	}

	e.metrics.MissedTrades.Set(float64(len(e.missedTrades)))
	return nil
}

// Position returns the currently open position, if any
func (e *Engine) Position() *state.ActivePosition {
	return e.position
}

// MissedTrades returns the combinations currently above the entry
// threshold while a position occupies the engine.
func (e *Engine) MissedTrades() map[core.TradeCombination]decimal.Decimal {
	out := make(map[core.TradeCombination]decimal.Decimal, len(e.missedTrades))
	for k, v := range e.missedTrades {
		out[k] = v
	}
	return out
}

func (e *Engine) fetchTickers(ctx context.Context) {
	var g errgroup.Group
	for name, strategy := range e.strategies {
		name, strategy := name, strategy
		g.Go(func() error {
			if err := strategy.Fetch(ctx, e.pairs); err != nil {
				e.logger.Warn("Ticker fetch failed", "exchange", name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// evaluateSafe contains a panicking combination so the rest of the tick
// still runs.
func (e *Engine) evaluateSafe(ctx context.Context, combo core.TradeCombination, forceClose bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("combination evaluation panicked: %v", r)
		}
	}()
	return e.evaluate(ctx, combo, forceClose)
}

// evaluate runs the per-combination state machine step
func (e *Engine) evaluate(ctx context.Context, combo core.TradeCombination, forceClose bool) error {
	longTicker, okLong := e.tickers.Get(combo.LongExchange, combo.Pair)
	shortTicker, okShort := e.tickers.Get(combo.ShortExchange, combo.Pair)
	if !okLong || !okShort {
		return nil
	}

	sp, ok := e.spreads.ComputeSpread(combo, longTicker, shortTicker)
	if !ok {
		return nil
	}

	labels := []string{combo.LongExchange, combo.ShortExchange, combo.Pair.String()}
	in, _ := sp.In.Float64()
	out, _ := sp.Out.Float64()
	e.metrics.EntrySpread.WithLabelValues(labels...).Set(in)
	e.metrics.ExitSpread.WithLabelValues(labels...).Set(out)

	if e.position == nil {
		return e.considerEntry(ctx, sp, forceClose)
	}
	if combo == e.position.Combination() {
		return e.considerExit(ctx, sp, forceClose)
	}
	e.trackMissedTrade(ctx, sp)
	return nil
}

// trackMissedTrade records qualifying spreads on combinations the open
// position locks out, and forgets them once the spread falls back.
func (e *Engine) trackMissedTrade(ctx context.Context, sp core.Spread) {
	longFee, shortFee, err := e.feesFor(ctx, sp.Combination)
	if err != nil {
		return
	}
	target := e.entryTarget(longFee, shortFee)
	if sp.In.GreaterThan(target) {
		if _, seen := e.missedTrades[sp.Combination]; !seen {
			e.logger.Info("Missed trade, another position is open",
				"combination", sp.Combination.String(), "spread", sp.In)
		}
		e.missedTrades[sp.Combination] = sp.In
	} else {
		delete(e.missedTrades, sp.Combination)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

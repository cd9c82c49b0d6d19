// Package bootstrap wires configuration, gateways, telemetry and the
// trading engine into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"spread_trader/internal/alert"
	"spread_trader/internal/config"
	"spread_trader/internal/core"
	"spread_trader/internal/engine"
	"spread_trader/internal/exchange"
	"spread_trader/internal/journal"
	"spread_trader/internal/state"
	"spread_trader/internal/ticker"
	"spread_trader/pkg/concurrency"
	"spread_trader/pkg/logging"
	"spread_trader/pkg/telemetry"
)

// App holds the composed application.
type App struct {
	Cfg    *config.Config
	Logger core.ILogger

	engine  *engine.Engine
	journal journal.Journal
	metrics *telemetry.Server
	pool    *concurrency.WorkerPool
	streams []*ticker.StreamingStrategy
}

// NewApp loads configuration and constructs every collaborator. Nothing
// starts running until Run is called.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	exchanges, err := exchange.Build(cfg, logger)
	if err != nil {
		return nil, err
	}

	pairs := make([]core.CurrencyPair, 0, len(cfg.Trading.Pairs))
	for _, raw := range cfg.Trading.Pairs {
		p, err := core.ParseCurrencyPair(raw)
		if err != nil {
			return nil, fmt.Errorf("trading pair %q: %w", raw, err)
		}
		pairs = append(pairs, p)
	}

	metrics := telemetry.GetGlobalMetrics()
	store := ticker.NewStore()
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:       "ticker-fetch",
		MaxWorkers: cfg.Ticker.PoolSize,
	}, logger)
	limiter := rate.NewLimiter(rate.Limit(cfg.Ticker.RateLimitPerSecond), 1)
	latencyBudget := time.Duration(cfg.Ticker.LatencyBudgetMillis) * time.Millisecond

	strategies := make(map[string]ticker.FetchStrategy, len(exchanges))
	var streams []*ticker.StreamingStrategy
	probeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for name, ex := range exchanges {
		if ws := cfg.Exchanges[name].TickerWSURL; ws != "" {
			stream := ticker.NewStreamingStrategy(name, ws, pairs, store, logger)
			strategies[name] = stream
			streams = append(streams, stream)
			continue
		}
		strategies[name] = ticker.SelectStrategy(probeCtx, ex, pairs, store, pool, limiter, logger, metrics, latencyBudget)
	}

	jnl, err := buildJournal(cfg)
	if err != nil {
		return nil, err
	}

	manager := alert.NewAlertManager(logger)
	if tg := cfg.Alerts.Telegram; tg.BotToken != "" {
		manager.AddChannel(alert.NewTelegramChannel(tg.BotToken, tg.ChatID))
	}
	if sl := cfg.Alerts.Slack; sl.WebhookURL != "" {
		manager.AddChannel(alert.NewSlackChannel(sl.WebhookURL))
	}

	eng, err := engine.New(engine.Deps{
		Logger:     logger,
		Config:     cfg,
		Exchanges:  exchanges,
		Tickers:    store,
		Strategies: strategies,
		Store:      state.NewFileStore(cfg.App.StateFile),
		Journal:    jnl,
		Notifier:   alert.NewNotifier(manager),
		Metrics:    metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	app := &App{
		Cfg:     cfg,
		Logger:  logger,
		engine:  eng,
		journal: jnl,
		pool:    pool,
		streams: streams,
	}
	if cfg.Telemetry.EnableMetrics {
		app.metrics = telemetry.NewServer(cfg.Telemetry.MetricsPort, logger)
	}
	return app, nil
}

func buildJournal(cfg *config.Config) (journal.Journal, error) {
	var journals []journal.Journal
	if cfg.App.JournalDB != "" {
		db, err := journal.NewSQLiteJournal(cfg.App.JournalDB)
		if err != nil {
			return nil, fmt.Errorf("journal db: %w", err)
		}
		journals = append(journals, db)
	}
	if cfg.App.TradeLogCSV != "" {
		journals = append(journals, journal.NewCSVJournal(cfg.App.TradeLogCSV))
	}
	switch len(journals) {
	case 0:
		return nil, nil
	case 1:
		return journals[0], nil
	default:
		return journal.NewMultiJournal(journals...), nil
	}
}

// Run drives the trading loop until a termination signal arrives, the
// engine requests shutdown, or a tick fails unrecoverably.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.metrics != nil {
		a.metrics.Start()
	}
	for _, s := range a.streams {
		s.Start()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.tickLoop(ctx)
	})

	err := g.Wait()
	a.shutdown()

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		a.Logger.Info("Shut down cleanly")
		return nil
	case errors.Is(err, engine.ErrIdleExit):
		a.Logger.Info("No open position and exit requested, stopping")
		return nil
	case errors.Is(err, engine.ErrBailOut):
		a.Logger.Error("Bailing out after unrecoverable order failure, manual intervention required")
		return err
	default:
		a.Logger.Error("Stopped with error", "error", err)
		return err
	}
}

// tickLoop runs evaluation rounds strictly one at a time. A round that
// overruns the interval simply delays the next one.
func (a *App) tickLoop(ctx context.Context) error {
	interval := a.Cfg.TickInterval()
	t := time.NewTicker(interval)
	defer t.Stop()

	a.Logger.Info("Starting trading loop", "interval", interval.String())
	for {
		if err := a.engine.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (a *App) shutdown() {
	for _, s := range a.streams {
		s.Stop()
	}
	a.pool.Stop()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Stop(ctx); err != nil {
			a.Logger.Warn("Metrics server shutdown", "error", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.Logger.Warn("Journal close", "error", err)
		}
	}
}

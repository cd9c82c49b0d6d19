// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spread_trader/internal/core"
)

// Config represents the complete configuration structure
type Config struct {
	App       AppConfig                 `yaml:"app"`
	Exchanges map[string]ExchangeConfig `yaml:"exchanges"`
	Trading   TradingConfig             `yaml:"trading"`
	Paper     PaperConfig               `yaml:"paper"`
	Ticker    TickerConfig              `yaml:"ticker"`
	Alerts    AlertsConfig              `yaml:"alerts"`
	Telemetry TelemetryConfig           `yaml:"telemetry"`
	System    SystemConfig              `yaml:"system"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	TickIntervalSeconds int    `yaml:"tick_interval_seconds"`
	StateFile           string `yaml:"state_file"`
	ForceCloseFile      string `yaml:"force_close_file"`
	ExitWhenIdleFile    string `yaml:"exit_when_idle_file"`
	PaperTrading        bool   `yaml:"paper_trading"`
	JournalDB           string `yaml:"journal_db"`
	TradeLogCSV         string `yaml:"trade_log_csv"`
}

// ExchangeConfig contains exchange-specific configuration
type ExchangeConfig struct {
	FeeRate           float64  `yaml:"fee_rate"`            // fallback when the venue has no dynamic fee endpoint
	FeeComputation    string   `yaml:"fee_computation"`     // SERVER or CLIENT
	Margin            bool     `yaml:"margin"`              // venue supports margin/short trading
	MarginFeeRate     *float64 `yaml:"margin_fee_rate"`     // only meaningful when margin is true
	MaxExposure       float64  `yaml:"max_exposure"`        // counter-currency cap per position leg
	MinTradableAmount *float64 `yaml:"min_tradable_amount"`
	OrderVolumeStep   *float64 `yaml:"order_volume_step"`   // smallest volume increment, zero/absent when unconstrained
	VolumeScale       int32    `yaml:"volume_scale"`        // decimal places accepted for order volume
	HomeCurrency      string   `yaml:"home_currency"`       // currency reported by combined balance, default USD
	TickerWSURL       string   `yaml:"ticker_ws_url"`       // push feed; when set the streaming strategy is used
	APIURL            string   `yaml:"api_url"`             // REST base URL; paper trading still reads market data from it
	APIKey            string   `yaml:"api_key"`
	APISecret         string   `yaml:"api_secret"`
}

// TradingConfig contains trading parameters
type TradingConfig struct {
	Pairs []string `yaml:"pairs"`

	// EntrySpreadTarget, when set, is used verbatim as the entry threshold.
	// Otherwise the threshold is derived from EntryTarget and the fees of
	// both legs.
	EntrySpreadTarget *float64 `yaml:"entry_spread_target"`
	EntryTarget       float64  `yaml:"entry_target"`

	// ExitSpreadTarget, when set, is used verbatim. Otherwise it is derived
	// from the realized entry spread, MinimumProfit and the fees.
	ExitSpreadTarget *float64 `yaml:"exit_spread_target"`
	MinimumProfit    float64  `yaml:"minimum_profit"`

	TradeTimeoutHours    int     `yaml:"trade_timeout_hours"` // 0 disables timed exits
	NeutralityRatingMin  float64 `yaml:"neutrality_rating_min"`
	NeutralityRatingMax  float64 `yaml:"neutrality_rating_max"`
	FillPollSeconds      int     `yaml:"fill_poll_seconds"`
	FillTimeoutSeconds   int     `yaml:"fill_timeout_seconds"`
}

// PaperConfig configures the simulated exchange
type PaperConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	AutoFill       bool    `yaml:"auto_fill"`
}

// TickerConfig contains ticker fetch settings
type TickerConfig struct {
	LatencyBudgetMillis int     `yaml:"latency_budget_millis"`
	PoolSize            int     `yaml:"pool_size"`
	RateLimitPerSecond  float64 `yaml:"rate_limit_per_second"`
}

// AlertsConfig contains notification channel settings
type AlertsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Slack    SlackConfig    `yaml:"slack"`
}

// TelegramConfig configures the Telegram alert channel
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// SlackConfig configures the Slack webhook alert channel
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.TickIntervalSeconds == 0 {
		c.App.TickIntervalSeconds = 30
	}
	if c.App.StateFile == "" {
		c.App.StateFile = "state/activePosition.json"
	}
	if c.App.ForceCloseFile == "" {
		c.App.ForceCloseFile = "state/force-close"
	}
	if c.App.ExitWhenIdleFile == "" {
		c.App.ExitWhenIdleFile = "state/exit-when-idle"
	}
	if c.Trading.EntryTarget == 0 {
		c.Trading.EntryTarget = 0.001
	}
	if c.Trading.MinimumProfit == 0 {
		c.Trading.MinimumProfit = 0.001
	}
	if c.Trading.NeutralityRatingMin == 0 && c.Trading.NeutralityRatingMax == 0 {
		c.Trading.NeutralityRatingMin = 0
		c.Trading.NeutralityRatingMax = 2
	}
	if c.Trading.FillPollSeconds == 0 {
		c.Trading.FillPollSeconds = 3
	}
	if c.Trading.FillTimeoutSeconds == 0 {
		c.Trading.FillTimeoutSeconds = 300
	}
	if c.Ticker.LatencyBudgetMillis == 0 {
		c.Ticker.LatencyBudgetMillis = 2000
	}
	if c.Ticker.PoolSize == 0 {
		c.Ticker.PoolSize = 8
	}
	if c.Ticker.RateLimitPerSecond == 0 {
		c.Ticker.RateLimitPerSecond = 5
	}
	if c.Paper.InitialBalance == 0 {
		c.Paper.InitialBalance = 100
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	for name, ex := range c.Exchanges {
		if ex.HomeCurrency == "" {
			ex.HomeCurrency = "USD"
		}
		c.Exchanges[name] = ex
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateExchanges(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateTrading(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateSystem(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (c *Config) validateExchanges() error {
	if len(c.Exchanges) < 2 {
		return ValidationError{
			Field:   "exchanges",
			Message: "at least two exchanges are required to trade a spread",
		}
	}

	marginCount := 0
	for name, ex := range c.Exchanges {
		if _, err := core.ParseFeeComputation(ex.FeeComputation); err != nil {
			return ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.fee_computation", name),
				Value:   ex.FeeComputation,
				Message: "must be SERVER or CLIENT",
			}
		}
		if ex.FeeRate < 0 || ex.FeeRate >= 1 {
			return ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.fee_rate", name),
				Value:   ex.FeeRate,
				Message: "must be in [0, 1)",
			}
		}
		if ex.MaxExposure <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.max_exposure", name),
				Value:   ex.MaxExposure,
				Message: "must be positive",
			}
		}
		if ex.Margin {
			marginCount++
		}
		if ex.APIURL == "" {
			return ValidationError{
				Field:   fmt.Sprintf("exchanges.%s.api_url", name),
				Message: "required, market data comes from the venue even when paper trading",
			}
		}
	}

	if marginCount == 0 {
		return ValidationError{
			Field:   "exchanges",
			Message: "at least one exchange must support margin to host the short leg",
		}
	}

	return nil
}

func (c *Config) validateTrading() error {
	if len(c.Trading.Pairs) == 0 {
		return ValidationError{
			Field:   "trading.pairs",
			Message: "at least one currency pair is required",
		}
	}
	for _, p := range c.Trading.Pairs {
		if _, err := core.ParseCurrencyPair(p); err != nil {
			return ValidationError{
				Field:   "trading.pairs",
				Value:   p,
				Message: "must be formatted as BASE/COUNTER",
			}
		}
	}
	if c.Trading.NeutralityRatingMin > c.Trading.NeutralityRatingMax {
		return ValidationError{
			Field:   "trading.neutrality_rating_min",
			Value:   c.Trading.NeutralityRatingMin,
			Message: "must not exceed neutrality_rating_max",
		}
	}
	return nil
}

func (c *Config) validateSystem() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	for _, lvl := range validLevels {
		if strings.ToUpper(c.System.LogLevel) == lvl {
			return nil
		}
	}
	return ValidationError{
		Field:   "system.log_level",
		Value:   c.System.LogLevel,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
	}
}

// TickInterval returns the tick interval as a duration
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.App.TickIntervalSeconds) * time.Second
}

// TradeTimeout returns the maximum hold duration; zero means no timeout
func (c *Config) TradeTimeout() time.Duration {
	return time.Duration(c.Trading.TradeTimeoutHours) * time.Hour
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	cfg := &Config{
		App: AppConfig{
			TickIntervalSeconds: 30,
			PaperTrading:        true,
		},
		Exchanges: map[string]ExchangeConfig{
			"alpha": {
				FeeRate:        0.0026,
				FeeComputation: "SERVER",
				MaxExposure:    1000,
				APIURL:         "https://api.alpha.example.com",
			},
			"bravo": {
				FeeRate:        0.0030,
				FeeComputation: "SERVER",
				Margin:         true,
				MaxExposure:    1000,
				APIURL:         "https://api.bravo.example.com",
			},
		},
		Trading: TradingConfig{
			Pairs: []string{"BTC/USD"},
		},
		Paper: PaperConfig{
			InitialBalance: 1000,
			AutoFill:       true,
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
	}
	cfg.applyDefaults()
	return cfg
}

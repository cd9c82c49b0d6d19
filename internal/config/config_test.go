package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
app:
  tick_interval_seconds: 10
  paper_trading: true
exchanges:
  alpha:
    api_url: https://api.alpha.test
    fee_rate: 0.0026
    fee_computation: SERVER
    max_exposure: 500
  bravo:
    api_url: https://api.bravo.test
    fee_rate: 0.0030
    fee_computation: CLIENT
    margin: true
    margin_fee_rate: 0.0005
    max_exposure: 500
trading:
  pairs: ["BTC/USD", "ETH/USD"]
  entry_target: 0.001
  minimum_profit: 0.001
system:
  log_level: DEBUG
`

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.App.TickIntervalSeconds)
	assert.True(t, cfg.App.PaperTrading)
	assert.Len(t, cfg.Exchanges, 2)
	assert.True(t, cfg.Exchanges["bravo"].Margin)
	require.NotNil(t, cfg.Exchanges["bravo"].MarginFeeRate)
	assert.Equal(t, 0.0005, *cfg.Exchanges["bravo"].MarginFeeRate)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, cfg.Trading.Pairs)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "state/activePosition.json", cfg.App.StateFile)
	assert.Equal(t, "state/force-close", cfg.App.ForceCloseFile)
	assert.Equal(t, "state/exit-when-idle", cfg.App.ExitWhenIdleFile)
	assert.Equal(t, 0.001, cfg.Trading.EntryTarget)
	assert.Equal(t, 0.001, cfg.Trading.MinimumProfit)
	assert.Equal(t, 0.0, cfg.Trading.NeutralityRatingMin)
	assert.Equal(t, 2.0, cfg.Trading.NeutralityRatingMax)
	assert.Equal(t, 3, cfg.Trading.FillPollSeconds)
	assert.Equal(t, "USD", cfg.Exchanges["alpha"].HomeCurrency)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("TRADER_LOG_LEVEL", "WARN")
	path := writeConfig(t, `
app:
  paper_trading: true
exchanges:
  alpha:
    api_url: https://api.alpha.test
    fee_rate: 0.001
    fee_computation: SERVER
    max_exposure: 100
  bravo:
    api_url: https://api.bravo.test
    fee_rate: 0.001
    fee_computation: SERVER
    margin: true
    max_exposure: 100
trading:
  pairs: ["BTC/USD"]
system:
  log_level: ${TRADER_LOG_LEVEL}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.System.LogLevel)
}

func TestValidateRejectsSingleExchange(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Exchanges, "bravo")

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two exchanges")
}

func TestValidateRejectsNoMarginExchange(t *testing.T) {
	cfg := DefaultConfig()
	ex := cfg.Exchanges["bravo"]
	ex.Margin = false
	cfg.Exchanges["bravo"] = ex

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "margin")
}

func TestValidateRejectsBadFeeComputation(t *testing.T) {
	cfg := DefaultConfig()
	ex := cfg.Exchanges["alpha"]
	ex.FeeComputation = "UPFRONT"
	cfg.Exchanges["alpha"] = ex

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER or CLIENT")
}

func TestValidateRequiresAPIURL(t *testing.T) {
	cfg := DefaultConfig()
	ex := cfg.Exchanges["alpha"]
	ex.APIURL = ""
	cfg.Exchanges["alpha"] = ex

	// required in paper mode too, the gateway is the market data source
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_url")
}

func TestValidateRejectsBadPair(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trading.Pairs = []string{"BTCUSD"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASE/COUNTER")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.LogLevel = "VERBOSE"

	err := cfg.Validate()
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	require.Error(t, err)
}

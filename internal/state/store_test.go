package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spread_trader/internal/core"
)

func samplePosition() *ActivePosition {
	return &ActivePosition{
		CurrencyPair: core.CurrencyPair{Base: "BTC", Counter: "USD"},
		ExitTarget:   decimal.RequireFromString("-0.007580291242769"),
		EntryBalance: decimal.RequireFromString("2000.55"),
		EntryTime:    time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		LongTrade: Trade{
			Exchange: "alpha",
			OrderID:  "order-long-1",
			Volume:   decimal.RequireFromString("1.23456789"),
			Entry:    decimal.RequireFromString("100.5"),
		},
		ShortTrade: Trade{
			Exchange: "bravo",
			OrderID:  "order-short-1",
			Volume:   decimal.RequireFromString("1.22887744"),
			Entry:    decimal.RequireFromString("110.25"),
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state", "activePosition.json"))

	original := samplePosition()
	require.NoError(t, store.Save(original))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, original.CurrencyPair, loaded.CurrencyPair)
	assert.True(t, original.ExitTarget.Equal(loaded.ExitTarget))
	assert.True(t, original.EntryBalance.Equal(loaded.EntryBalance))
	assert.True(t, original.EntryTime.Equal(loaded.EntryTime))
	assert.Equal(t, original.LongTrade.Exchange, loaded.LongTrade.Exchange)
	assert.Equal(t, original.LongTrade.OrderID, loaded.LongTrade.OrderID)
	assert.True(t, original.LongTrade.Volume.Equal(loaded.LongTrade.Volume))
	assert.True(t, original.LongTrade.Entry.Equal(loaded.LongTrade.Entry))
	assert.Equal(t, original.ShortTrade.Exchange, loaded.ShortTrade.Exchange)
	assert.True(t, original.ShortTrade.Volume.Equal(loaded.ShortTrade.Volume))
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	position, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, position)
}

func TestFileStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
}

func TestFileStoreDelete(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, store.Save(samplePosition()))
	require.NoError(t, store.Delete())

	position, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, position)

	// deleting again is not an error
	require.NoError(t, store.Delete())
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(samplePosition()))

	loaded, err := store.Load()
	require.NoError(t, err)
	loaded.LongTrade.OrderID = "mutated"

	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "order-long-1", again.LongTrade.OrderID)
}

func TestPositionCombination(t *testing.T) {
	p := samplePosition()
	combo := p.Combination()
	assert.Equal(t, "alpha", combo.LongExchange)
	assert.Equal(t, "bravo", combo.ShortExchange)
	assert.Equal(t, p.CurrencyPair, combo.Pair)
}

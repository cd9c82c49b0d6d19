package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZapLogger_LogsWithoutPanicking(t *testing.T) {
	logger, err := NewZapLogger("DEBUG")
	require.NoError(t, err)

	logger.Info("started", "key", "value")
	logger.Debug("detail", "status", "testing")
	logger.WithField("component", "test").Warn("scoped warning")
	logger.WithFields(map[string]interface{}{"a": 1, "b": "two"}).Error("scoped error")

	_ = logger.Sync() // stdout may not support sync, ignore error
}

func TestNewZapLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	logger, err := NewZapLogger("NOISY")
	require.NoError(t, err)
	logger.Info("still works")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLoggerFromString_RejectsInvalidLevel(t *testing.T) {
	_, err := NewLoggerFromString("verbose")
	assert.Error(t, err)
}

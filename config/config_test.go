package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/adapters/logger"
)

var configKeys = []string{
	"BINANCE_API_KEY", "BINANCE_API_SECRET", "IS_TESTNET",
	"ACCOUNT_ID", "ACCOUNT_SIZE", "PAGE_SIZE", "SEARCH_CASE_SENSITIVE", "PRESETS_PATH",
	"IMPORT_KLINE_INTERVAL", "IMPORT_LOOKBACK_DAYS", "DB_PATH", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.AccountID)
	assert.Equal(t, 0.0, cfg.AccountSize)
	assert.Equal(t, 10, cfg.PageSize)
	assert.False(t, cfg.SearchCaseSensitive)
	assert.Equal(t, "1m", cfg.ImportKlineInterval)
	assert.Equal(t, 30, cfg.ImportLookbackDays)
	assert.Equal(t, "./data/journal.db", cfg.DBPath)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Error(t, cfg.RequireExchangeCredentials())
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACCOUNT_ID", "swing")
	t.Setenv("ACCOUNT_SIZE", "25000")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("SEARCH_CASE_SENSITIVE", "true")
	t.Setenv("IMPORT_KLINE_INTERVAL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BINANCE_API_KEY", "k")
	t.Setenv("BINANCE_API_SECRET", "s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "swing", cfg.AccountID)
	assert.Equal(t, 25000.0, cfg.AccountSize)
	assert.Equal(t, 25, cfg.PageSize)
	assert.True(t, cfg.SearchCaseSensitive)
	assert.Equal(t, "5m", cfg.ImportKlineInterval)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.NoError(t, cfg.RequireExchangeCredentials())
}

func TestLoadConfig_CollectsErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACCOUNT_SIZE", "-1")
	t.Setenv("PAGE_SIZE", "ten")
	t.Setenv("IMPORT_KLINE_INTERVAL", "7m")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCOUNT_SIZE cannot be negative")
	assert.Contains(t, err.Error(), "invalid PAGE_SIZE")
	assert.Contains(t, err.Error(), "IMPORT_KLINE_INTERVAL")
}

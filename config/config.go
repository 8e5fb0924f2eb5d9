package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tradejournal/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API, only needed for imports
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Journal
	AccountID           string  // account new trades are logged under
	AccountSize         float64 // 0 disables risk-percent and drawdown-percent
	PageSize            int
	SearchCaseSensitive bool
	PresetsPath         string // optional YAML file of saved trade-log queries

	// Import
	ImportKlineInterval string
	ImportLookbackDays  int

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

var klineIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true,
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Journal
	cfg.AccountID = strings.TrimSpace(getEnv("ACCOUNT_ID", "default"))
	if cfg.AccountID == "" {
		errs = append(errs, "ACCOUNT_ID must not be blank")
	}

	cfg.AccountSize, err = getEnvAsFloatRequired("ACCOUNT_SIZE", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ACCOUNT_SIZE: %v", err))
	} else if cfg.AccountSize < 0 {
		errs = append(errs, "ACCOUNT_SIZE cannot be negative")
	}

	cfg.PageSize, err = getEnvAsIntRequired("PAGE_SIZE", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PAGE_SIZE: %v", err))
	} else if cfg.PageSize <= 0 {
		errs = append(errs, "PAGE_SIZE must be positive")
	}

	cfg.SearchCaseSensitive = getEnvAsBool("SEARCH_CASE_SENSITIVE", false)
	cfg.PresetsPath = getEnv("PRESETS_PATH", "")

	// Import
	cfg.ImportKlineInterval = getEnv("IMPORT_KLINE_INTERVAL", "1m")
	if !klineIntervals[cfg.ImportKlineInterval] {
		errs = append(errs, fmt.Sprintf("IMPORT_KLINE_INTERVAL %q is not a supported kline interval", cfg.ImportKlineInterval))
	}

	cfg.ImportLookbackDays, err = getEnvAsIntRequired("IMPORT_LOOKBACK_DAYS", 30)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid IMPORT_LOOKBACK_DAYS: %v", err))
	} else if cfg.ImportLookbackDays <= 0 {
		errs = append(errs, "IMPORT_LOOKBACK_DAYS must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// RequireExchangeCredentials reports missing Binance keys. Only the importer
// calls private endpoints, so the keys are not checked at load time.
func (c *Config) RequireExchangeCredentials() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "BINANCE_API_KEY must be set")
	}
	if c.SecretKey == "" {
		missing = append(missing, "BINANCE_API_SECRET must be set")
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(missing, "; "))
	}
	return nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

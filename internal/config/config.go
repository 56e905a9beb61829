// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	LogLevel string
	DevMode  bool

	// CachePath is the SQLite cache database location. Empty selects the
	// in-memory cache store.
	CachePath string

	// Monte Carlo defaults; callers can override per request.
	MonteCarloSimulations int
	MonteCarloHorizonDays int

	// Monitor defaults.
	MonitorPollInterval time.Duration
	PriceRefreshEvery   time.Duration

	RiskFreeRate float64
}

// Load reads configuration from environment variables. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:              getEnv("CHAINFOLIO_LOG_LEVEL", "info"),
		DevMode:               getEnvBool("CHAINFOLIO_DEV_MODE", false),
		CachePath:             getEnv("CHAINFOLIO_CACHE_PATH", ""),
		MonteCarloSimulations: 10000,
		MonteCarloHorizonDays: 252,
		MonitorPollInterval:   60 * time.Second,
		PriceRefreshEvery:     15 * time.Second,
		RiskFreeRate:          0.0,
	}

	var err error
	if cfg.MonteCarloSimulations, err = getEnvInt("CHAINFOLIO_MC_SIMULATIONS", cfg.MonteCarloSimulations); err != nil {
		return nil, err
	}
	if cfg.MonteCarloHorizonDays, err = getEnvInt("CHAINFOLIO_MC_HORIZON_DAYS", cfg.MonteCarloHorizonDays); err != nil {
		return nil, err
	}
	if cfg.MonitorPollInterval, err = getEnvDuration("CHAINFOLIO_MONITOR_POLL_INTERVAL", cfg.MonitorPollInterval); err != nil {
		return nil, err
	}
	if cfg.PriceRefreshEvery, err = getEnvDuration("CHAINFOLIO_PRICE_REFRESH_INTERVAL", cfg.PriceRefreshEvery); err != nil {
		return nil, err
	}
	if cfg.RiskFreeRate, err = getEnvFloat("CHAINFOLIO_RISK_FREE_RATE", cfg.RiskFreeRate); err != nil {
		return nil, err
	}

	if cfg.MonteCarloSimulations <= 0 {
		return nil, fmt.Errorf("CHAINFOLIO_MC_SIMULATIONS must be positive, got %d", cfg.MonteCarloSimulations)
	}
	if cfg.MonteCarloHorizonDays <= 0 {
		return nil, fmt.Errorf("CHAINFOLIO_MC_HORIZON_DAYS must be positive, got %d", cfg.MonteCarloHorizonDays)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

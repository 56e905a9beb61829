package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 10000, cfg.MonteCarloSimulations)
	assert.Equal(t, 252, cfg.MonteCarloHorizonDays)
	assert.Equal(t, time.Minute, cfg.MonitorPollInterval)
	assert.Equal(t, 15*time.Second, cfg.PriceRefreshEvery)
	assert.Zero(t, cfg.RiskFreeRate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAINFOLIO_LOG_LEVEL", "debug")
	t.Setenv("CHAINFOLIO_DEV_MODE", "true")
	t.Setenv("CHAINFOLIO_MC_SIMULATIONS", "2500")
	t.Setenv("CHAINFOLIO_MONITOR_POLL_INTERVAL", "30s")
	t.Setenv("CHAINFOLIO_RISK_FREE_RATE", "0.03")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 2500, cfg.MonteCarloSimulations)
	assert.Equal(t, 30*time.Second, cfg.MonitorPollInterval)
	assert.InDelta(t, 0.03, cfg.RiskFreeRate, 1e-12)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("CHAINFOLIO_MC_SIMULATIONS", "not a number")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveSimulations(t *testing.T) {
	t.Setenv("CHAINFOLIO_MC_SIMULATIONS", "0")
	_, err := Load()
	assert.Error(t, err)
}

package performance

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_NeutralOnInsufficientData(t *testing.T) {
	analytics := NewAnalytics(zerolog.Nop())

	metrics := analytics.Calculate([]float64{0.01}, 0)
	assert.Equal(t, 0.0, metrics.TotalReturn)
	assert.Equal(t, 0.0, metrics.SharpeRatio)
}

func TestCalculate_BasicMetrics(t *testing.T) {
	analytics := NewAnalytics(zerolog.Nop())

	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01}
	metrics := analytics.Calculate(returns, 0)

	assert.InDelta(t, 0.6, metrics.WinRate, 1e-9)
	assert.InDelta(t, 0.03, metrics.BestDay, 1e-9)
	assert.InDelta(t, -0.02, metrics.WorstDay, 1e-9)
	assert.InDelta(t, 2.0, metrics.ProfitFactor, 1e-9) // 0.06 gains / 0.03 losses
	assert.Greater(t, metrics.TotalReturn, 0.0)
	assert.Greater(t, metrics.SharpeRatio, 0.0)
}

func TestCalculate_RollingWindows(t *testing.T) {
	analytics := NewAnalytics(zerolog.Nop())

	// 100 flat days then 30 days of +0.1%.
	returns := make([]float64, 130)
	for i := 100; i < 130; i++ {
		returns[i] = 0.001
	}
	metrics := analytics.Calculate(returns, 0)

	assert.Greater(t, metrics.Rolling30Return, 0.0)
	assert.Greater(t, metrics.Rolling90Return, 0.0)
	assert.Greater(t, metrics.Rolling30Return, metrics.Rolling90Return-1e-12)
}

func TestCalculateWithBenchmark_BetaOne(t *testing.T) {
	analytics := NewAnalytics(zerolog.Nop())

	returns := []float64{0.01, -0.02, 0.03, 0.005, -0.01, 0.02}
	metrics := analytics.CalculateWithBenchmark(returns, returns, 0)

	require.NotNil(t, metrics.Benchmark)
	assert.InDelta(t, 1.0, metrics.Benchmark.Beta, 1e-9)
	assert.InDelta(t, 0.0, metrics.Benchmark.Alpha, 1e-9)
	assert.InDelta(t, 0.0, metrics.Benchmark.TrackingError, 1e-9)
	assert.InDelta(t, 1.0, metrics.Benchmark.Correlation, 1e-9)
	assert.InDelta(t, 1.0, metrics.Benchmark.UpCapture, 1e-9)
	assert.InDelta(t, 1.0, metrics.Benchmark.DownCapture, 1e-9)
}

func TestCalculateWithBenchmark_HalfExposure(t *testing.T) {
	analytics := NewAnalytics(zerolog.Nop())

	benchmark := []float64{0.02, -0.02, 0.04, -0.04, 0.02, -0.02}
	portfolio := make([]float64, len(benchmark))
	for i, b := range benchmark {
		portfolio[i] = b / 2
	}

	metrics := analytics.CalculateWithBenchmark(portfolio, benchmark, 0)

	require.NotNil(t, metrics.Benchmark)
	assert.InDelta(t, 0.5, metrics.Benchmark.Beta, 1e-9)
	assert.InDelta(t, 0.5, metrics.Benchmark.UpCapture, 1e-9)
	assert.InDelta(t, 0.5, metrics.Benchmark.DownCapture, 1e-9)
	assert.Greater(t, metrics.Benchmark.TrackingError, 0.0)
}

func TestCalculateWithBenchmark_ZeroVarianceBenchmark(t *testing.T) {
	analytics := NewAnalytics(zerolog.Nop())

	metrics := analytics.CalculateWithBenchmark(
		[]float64{0.01, -0.01, 0.02},
		[]float64{0.0, 0.0, 0.0},
		0,
	)

	assert.Nil(t, metrics.Benchmark, "zero-variance benchmark must not produce a comparison block")
}

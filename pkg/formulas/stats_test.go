package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := CalculateReturns(prices)

	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)
}

func TestCalculateReturns_Insufficient(t *testing.T) {
	assert.Empty(t, CalculateReturns([]float64{100}))
	assert.Empty(t, CalculateReturns(nil))
}

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 3.0, Percentile(data, 50), 1e-9)
	assert.InDelta(t, 1.0, Percentile(data, 0), 1e-9)
	assert.InDelta(t, 5.0, Percentile(data, 100), 1e-9)
	assert.InDelta(t, 1.2, Percentile(data, 5), 1e-9)
}

func TestSkewnessKurtosis_Symmetric(t *testing.T) {
	data := []float64{-2, -1, 0, 1, 2}

	assert.InDelta(t, 0.0, Skewness(data), 1e-9)
	assert.Greater(t, Kurtosis(data), 0.0)
}

func TestSkewness_ZeroVariance(t *testing.T) {
	data := []float64{0.01, 0.01, 0.01}

	assert.Equal(t, 0.0, Skewness(data))
	assert.Equal(t, 0.0, Kurtosis(data))
}

func TestDownsideDeviation(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02}

	dd := DownsideDeviation(returns, 0)
	expected := math.Sqrt((0.01*0.01 + 0.02*0.02) / 4)
	assert.InDelta(t, expected, dd, 1e-9)
}

func TestDownsideDeviation_NoDownside(t *testing.T) {
	assert.Equal(t, 0.0, DownsideDeviation([]float64{0.01, 0.02, 0.03}, 0))
}

func TestHistoricalVaR_NegativeTail(t *testing.T) {
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = float64(i-50) / 1000 // -0.05 .. 0.049
	}

	var95 := HistoricalVaR(returns, 0.95)
	cvar95 := CalculateCVaR(returns, 0.95)

	assert.Less(t, var95, 0.0)
	assert.LessOrEqual(t, cvar95, var95, "CVaR must be at least as severe as VaR")
}

func TestCalculateCVaR_Empty(t *testing.T) {
	assert.Equal(t, 0.0, CalculateCVaR(nil, 0.95))
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, 0.02, -0.01, 0.015, 0.005}

	sharpe := CalculateSharpeRatio(returns, 0, TradingDaysPerYear)
	require.NotNil(t, sharpe)
	assert.Greater(t, *sharpe, 0.0)
}

func TestCalculateSharpeRatio_ZeroVolatility(t *testing.T) {
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0, TradingDaysPerYear))
}

func TestCalculateSortinoRatio_NoDownside(t *testing.T) {
	assert.Nil(t, CalculateSortinoRatio([]float64{0.01, 0.02, 0.03}, 0, 0, TradingDaysPerYear))
}

func TestCalculateOmegaRatio(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.02, -0.01}

	omega := CalculateOmegaRatio(returns, 0)
	require.NotNil(t, omega)
	assert.InDelta(t, 2.0, *omega, 1e-9)
}

func TestCalculateDrawdownMetrics(t *testing.T) {
	values := []float64{100, 110, 99, 104.5, 121}

	metrics := CalculateDrawdownMetrics(values)
	require.NotNil(t, metrics)

	assert.InDelta(t, 0.10, metrics.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0.0, metrics.CurrentDrawdown, 1e-9)
	assert.Equal(t, 0, metrics.DaysInDrawdown)
	assert.InDelta(t, 121, metrics.PeakValue, 1e-9)

	// Two of five observations sit below the running peak (10% and 5%), so
	// the average drawdown is 7.5% while the pain index spreads the same sum
	// over all five observations.
	assert.InDelta(t, 0.075, metrics.AvgDrawdown, 1e-9)
	assert.InDelta(t, 0.03, metrics.PainIndex, 1e-9)
}

func TestCalculateDrawdownMetrics_AllUnderwater(t *testing.T) {
	// Monotonic decline: every observation after the peak is underwater, so
	// only the first term dilutes the pain index relative to AvgDrawdown.
	metrics := CalculateDrawdownMetrics([]float64{100, 90, 80})
	require.NotNil(t, metrics)
	assert.InDelta(t, 0.20, metrics.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0.15, metrics.AvgDrawdown, 1e-9)
	assert.InDelta(t, 0.10, metrics.PainIndex, 1e-9)
}

func TestCalculateDrawdownMetrics_Insufficient(t *testing.T) {
	assert.Nil(t, CalculateDrawdownMetrics([]float64{100}))
}

func TestAnnualizedReturn(t *testing.T) {
	// 252 days of +0.1% daily compounds to about 28.6% annualized.
	returns := make([]float64, TradingDaysPerYear)
	for i := range returns {
		returns[i] = 0.001
	}

	annualized := AnnualizedReturn(returns, TradingDaysPerYear)
	expected := math.Pow(1.001, TradingDaysPerYear) - 1
	assert.InDelta(t, expected, annualized, 1e-9)
}

func TestTailRatio(t *testing.T) {
	returns := []float64{-0.02, -0.01, 0.0, 0.01, 0.04}
	assert.Greater(t, TailRatio(returns), 1.0)
}

func TestCumulativeValues(t *testing.T) {
	values := CumulativeValues([]float64{0.10, -0.10}, 100)

	require.Len(t, values, 3)
	assert.InDelta(t, 100, values[0], 1e-9)
	assert.InDelta(t, 110, values[1], 1e-9)
	assert.InDelta(t, 99, values[2], 1e-9)
}

package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization base used for daily series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// Formula: stddev of daily returns × sqrt(252 trading days).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts prices to fractional returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i].
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Correlation calculates the Pearson correlation coefficient between two series.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Covariance calculates the sample covariance between two series.
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Skewness calculates the standardized third moment of a return series.
func Skewness(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sd := StdDev(data)
	if sd == 0 {
		return 0
	}
	mean := Mean(data)
	var sum float64
	for _, v := range data {
		d := (v - mean) / sd
		sum += d * d * d
	}
	return sum / float64(len(data))
}

// Kurtosis calculates the standardized fourth moment of a return series.
// This is raw kurtosis (normal distribution ≈ 3), not excess kurtosis.
func Kurtosis(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sd := StdDev(data)
	if sd == 0 {
		return 0
	}
	mean := Mean(data)
	var sum float64
	for _, v := range data {
		d := (v - mean) / sd
		sum += d * d * d * d
	}
	return sum / float64(len(data))
}

// Percentile returns the p-th percentile (0-100) of data using linear
// interpolation between adjacent ranks on a sorted copy of the input.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	if len(data) == 1 {
		return data[0]
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// DownsideDeviation calculates the standard deviation of returns below target.
// Deviations are measured against the target over the full observation count,
// which is the convention used by the Sortino ratio.
func DownsideDeviation(returns []float64, target float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sumSq float64
	for _, r := range returns {
		if r < target {
			d := r - target
			sumSq += d * d
		}
	}

	return math.Sqrt(sumSq / float64(len(returns)))
}

// CumulativeValues compounds a return series into an equity curve starting at
// initial. The result has len(returns)+1 points.
func CumulativeValues(returns []float64, initial float64) []float64 {
	values := make([]float64, len(returns)+1)
	values[0] = initial
	for i, r := range returns {
		values[i+1] = values[i] * (1 + r)
	}
	return values
}

package formulas

import (
	"math"
	"sort"
)

// HistoricalVaR calculates Value at Risk at the given confidence level as the
// (1-confidence) percentile of the empirical return distribution. For a
// negative-tailed series the result is negative.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return Percentile(returns, (1-confidence)*100)
}

// CalculateCVaR calculates Conditional Value at Risk (expected shortfall) at
// the given confidence level: the mean of returns at or below the VaR
// threshold.
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	if len(returns) == 1 {
		return returns[0]
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailProbability := 1.0 - confidence
	tailCount := int(math.Ceil(float64(len(sorted)) * tailProbability))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tailCount] {
		sum += r
	}
	return sum / float64(tailCount)
}

// TailRatio calculates the magnitude of the upper percentile of a return
// distribution over the magnitude of the lower percentile, using the 95th and
// 5th percentiles. A value above 1 indicates a fatter right tail.
func TailRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	upper := Percentile(returns, 95)
	lower := Percentile(returns, 5)
	if lower == 0 {
		return 0
	}
	return math.Abs(upper) / math.Abs(lower)
}

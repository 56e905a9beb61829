package formulas

import "math"

// DrawdownMetrics represents drawdown analysis of an equity curve.
type DrawdownMetrics struct {
	MaxDrawdown     float64 `json:"max_drawdown"`     // Worst peak-to-trough decline (positive fraction)
	AvgDrawdown     float64 `json:"avg_drawdown"`     // Mean drawdown over observations below the running peak
	CurrentDrawdown float64 `json:"current_drawdown"` // Drawdown from peak at the last observation
	PainIndex       float64 `json:"pain_index"`       // Mean drawdown over all observations
	DaysInDrawdown  int     `json:"days_in_drawdown"` // Observations since the running peak
	PeakValue       float64 `json:"peak_value"`
	CurrentValue    float64 `json:"current_value"`
}

// DrawdownSeries returns the drawdown at each observation of a value series,
// measured against the running maximum. Values are non-negative fractions.
func DrawdownSeries(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	drawdowns := make([]float64, len(values))
	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdowns[i] = (peak - v) / peak
		}
	}
	return drawdowns
}

// CalculateMaxDrawdown calculates the maximum drawdown from a value series.
// Returns nil when fewer than 2 observations are available.
func CalculateMaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return &maxDrawdown
}

// CalculateDrawdownMetrics calculates comprehensive drawdown metrics for a
// value series. AvgDrawdown averages only the observations spent below the
// running peak; the pain index averages over the whole series, so it dilutes
// with time spent at new highs.
func CalculateDrawdownMetrics(values []float64) *DrawdownMetrics {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]
	peakIndex := 0
	var sumDrawdown float64
	underwater := 0

	for i, v := range values {
		if v > peak {
			peak = v
			peakIndex = i
		}
		if peak > 0 {
			dd := (peak - v) / peak
			sumDrawdown += dd
			if dd > 0 {
				underwater++
			}
			if dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	avgDrawdown := 0.0
	if underwater > 0 {
		avgDrawdown = sumDrawdown / float64(underwater)
	}

	currentValue := values[len(values)-1]
	currentDrawdown := 0.0
	if peak > 0 {
		currentDrawdown = (peak - currentValue) / peak
	}

	return &DrawdownMetrics{
		MaxDrawdown:     maxDrawdown,
		AvgDrawdown:     avgDrawdown,
		CurrentDrawdown: currentDrawdown,
		PainIndex:       sumDrawdown / float64(len(values)),
		DaysInDrawdown:  len(values) - 1 - peakIndex,
		PeakValue:       peak,
		CurrentValue:    currentValue,
	}
}

// RecoveryFactor calculates total return divided by the magnitude of the
// maximum drawdown. Returns 0 when there is no drawdown to recover from.
func RecoveryFactor(totalReturn, maxDrawdown float64) float64 {
	dd := math.Abs(maxDrawdown)
	if dd == 0 {
		return 0
	}
	return totalReturn / dd
}

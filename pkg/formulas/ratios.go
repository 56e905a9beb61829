package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe ratio.
//
// Sharpe = (mean periodic return - periodic risk-free rate) / stddev,
// annualized by sqrt(periodsPerYear).
//
// Returns nil if there are fewer than 2 observations or zero volatility.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualized
}

// CalculateSortinoRatio calculates the annualized Sortino ratio, which
// substitutes downside deviation for total volatility.
//
// Returns nil if there are fewer than 2 observations or no downside.
func CalculateSortinoRatio(returns []float64, riskFreeRate float64, targetReturn float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	periodicMAR := targetReturn / float64(periodsPerYear)
	downside := DownsideDeviation(returns, periodicMAR)
	if downside == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sortino := (Mean(returns) - periodicRiskFree) / downside
	annualized := sortino * math.Sqrt(float64(periodsPerYear))

	return &annualized
}

// CalculateCalmarRatio calculates annualized return divided by the magnitude
// of the maximum drawdown. Returns nil when there is no drawdown.
func CalculateCalmarRatio(annualizedReturn, maxDrawdown float64) *float64 {
	dd := math.Abs(maxDrawdown)
	if dd == 0 {
		return nil
	}
	calmar := annualizedReturn / dd
	return &calmar
}

// CalculateOmegaRatio calculates the Omega ratio against a threshold return:
// the sum of gains above the threshold over the sum of losses below it.
//
// Returns nil if there are no observations or no losses below the threshold.
func CalculateOmegaRatio(returns []float64, threshold float64) *float64 {
	if len(returns) == 0 {
		return nil
	}

	var gains, losses float64
	for _, r := range returns {
		if r > threshold {
			gains += r - threshold
		} else {
			losses += threshold - r
		}
	}

	if losses == 0 {
		return nil
	}
	omega := gains / losses
	return &omega
}

// AnnualizedReturn compounds periodic returns into an annualized growth rate.
// Returns 0 for an empty series.
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}

	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	if growth <= 0 {
		return -1
	}

	years := float64(len(returns)) / float64(periodsPerYear)
	if years == 0 {
		return 0
	}
	return math.Pow(growth, 1/years) - 1
}

// TotalReturn compounds periodic returns into a total growth fraction.
func TotalReturn(returns []float64) float64 {
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return growth - 1
}

// Package risk computes statistical risk measures from a return series.
package risk

import (
	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/formulas"
	"github.com/aristath/chainfolio/pkg/logger"
)

// Calculator computes the full risk-metric set. It is a pure function of its
// inputs and safe for concurrent use.
type Calculator struct {
	log zerolog.Logger
}

// NewCalculator creates a risk metrics calculator.
func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{log: logger.Component(log, "risk")}
}

// Calculate computes risk metrics from daily returns. The equity curve is
// compounded from the returns with a base of 1.
//
// Fewer than 2 observations yields the zero-valued neutral result.
func (c *Calculator) Calculate(returns []float64) domain.RiskMetrics {
	values := formulas.CumulativeValues(returns, 1.0)
	return c.CalculateWithValues(returns, values)
}

// CalculateWithValues computes risk metrics using an explicit value series for
// the drawdown measures. Values must be aligned to the compounded returns.
func (c *Calculator) CalculateWithValues(returns, values []float64) domain.RiskMetrics {
	if len(returns) < 2 {
		c.log.Debug().Int("observations", len(returns)).Msg("Insufficient data for risk metrics, returning neutral result")
		return domain.RiskMetrics{}
	}

	metrics := domain.RiskMetrics{
		VaR95:             formulas.HistoricalVaR(returns, 0.95),
		VaR99:             formulas.HistoricalVaR(returns, 0.99),
		CVaR95:            formulas.CalculateCVaR(returns, 0.95),
		CVaR99:            formulas.CalculateCVaR(returns, 0.99),
		DailyVolatility:   formulas.StdDev(returns),
		AnnualVolatility:  formulas.AnnualizedVolatility(returns),
		Skewness:          formulas.Skewness(returns),
		Kurtosis:          formulas.Kurtosis(returns),
		TailRatio:         formulas.TailRatio(returns),
		DownsideDeviation: formulas.DownsideDeviation(returns, 0),
	}

	if dd := formulas.CalculateDrawdownMetrics(values); dd != nil {
		metrics.MaxDrawdown = dd.MaxDrawdown
		metrics.AvgDrawdown = dd.AvgDrawdown
		metrics.CurrentDrawdown = dd.CurrentDrawdown
		metrics.PainIndex = dd.PainIndex
		metrics.RecoveryFactor = formulas.RecoveryFactor(formulas.TotalReturn(returns), dd.MaxDrawdown)
	}

	return metrics
}

// Package performance computes return-based performance ratios, optionally
// against a benchmark series.
package performance

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/formulas"
	"github.com/aristath/chainfolio/pkg/logger"
)

// Analytics computes performance metrics. Pure and concurrency-safe.
type Analytics struct {
	log zerolog.Logger
}

// NewAnalytics creates a performance analytics calculator.
func NewAnalytics(log zerolog.Logger) *Analytics {
	return &Analytics{log: logger.Component(log, "performance")}
}

// Calculate computes performance metrics from daily returns.
// Fewer than 2 observations yields the zero-valued neutral result.
func (a *Analytics) Calculate(returns []float64, riskFreeRate float64) domain.PerformanceMetrics {
	if len(returns) < 2 {
		a.log.Debug().Int("observations", len(returns)).Msg("Insufficient data for performance metrics, returning neutral result")
		return domain.PerformanceMetrics{}
	}

	metrics := domain.PerformanceMetrics{
		TotalReturn:      formulas.TotalReturn(returns),
		AnnualizedReturn: formulas.AnnualizedReturn(returns, formulas.TradingDaysPerYear),
		Volatility:       formulas.AnnualizedVolatility(returns),
		WinRate:          winRate(returns),
		ProfitFactor:     profitFactor(returns),
		Rolling30Return:  rollingReturn(returns, 30),
		Rolling90Return:  rollingReturn(returns, 90),
	}

	metrics.BestDay, metrics.WorstDay = bestWorst(returns)

	if sharpe := formulas.CalculateSharpeRatio(returns, riskFreeRate, formulas.TradingDaysPerYear); sharpe != nil {
		metrics.SharpeRatio = *sharpe
	}
	if sortino := formulas.CalculateSortinoRatio(returns, riskFreeRate, 0, formulas.TradingDaysPerYear); sortino != nil {
		metrics.SortinoRatio = *sortino
	}

	values := formulas.CumulativeValues(returns, 1.0)
	if dd := formulas.CalculateMaxDrawdown(values); dd != nil {
		if calmar := formulas.CalculateCalmarRatio(metrics.AnnualizedReturn, *dd); calmar != nil {
			metrics.CalmarRatio = *calmar
		}
	}
	if omega := formulas.CalculateOmegaRatio(returns, 0); omega != nil {
		metrics.OmegaRatio = *omega
	}

	return metrics
}

// CalculateWithBenchmark computes performance metrics plus the
// benchmark-relative block. The two series must be date-aligned; the shorter
// common prefix from the end is used when lengths differ.
func (a *Analytics) CalculateWithBenchmark(returns, benchmark []float64, riskFreeRate float64) domain.PerformanceMetrics {
	metrics := a.Calculate(returns, riskFreeRate)

	n := len(returns)
	if len(benchmark) < n {
		n = len(benchmark)
	}
	if n < 2 {
		return metrics
	}
	p := returns[len(returns)-n:]
	b := benchmark[len(benchmark)-n:]

	benchVar := formulas.Variance(b)
	if benchVar == 0 {
		a.log.Debug().Msg("Benchmark has zero variance, skipping comparison block")
		return metrics
	}

	beta := formulas.Covariance(p, b) / benchVar
	periodicRF := riskFreeRate / formulas.TradingDaysPerYear

	// Annualized Jensen's alpha from mean daily excess returns.
	alpha := (formulas.Mean(p) - periodicRF - beta*(formulas.Mean(b)-periodicRF)) * formulas.TradingDaysPerYear

	active := make([]float64, n)
	for i := range active {
		active[i] = p[i] - b[i]
	}
	trackingError := formulas.AnnualizedVolatility(active)

	informationRatio := 0.0
	if trackingError != 0 {
		informationRatio = formulas.Mean(active) * formulas.TradingDaysPerYear / trackingError
	}

	metrics.Benchmark = &domain.BenchmarkComparison{
		Alpha:            alpha,
		Beta:             beta,
		TrackingError:    trackingError,
		InformationRatio: informationRatio,
		Correlation:      formulas.Correlation(p, b),
		UpCapture:        captureRatio(p, b, true),
		DownCapture:      captureRatio(p, b, false),
	}

	return metrics
}

func winRate(returns []float64) float64 {
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

func profitFactor(returns []float64) float64 {
	var gains, losses float64
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else {
			losses += -r
		}
	}
	if losses == 0 {
		return 0
	}
	return gains / losses
}

func bestWorst(returns []float64) (best, worst float64) {
	best = math.Inf(-1)
	worst = math.Inf(1)
	for _, r := range returns {
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
	}
	return best, worst
}

// rollingReturn compounds the most recent window of returns. Shorter series
// use everything available.
func rollingReturn(returns []float64, window int) float64 {
	if len(returns) > window {
		returns = returns[len(returns)-window:]
	}
	return formulas.TotalReturn(returns)
}

// captureRatio computes up- or down-capture: mean portfolio return over mean
// benchmark return, restricted to periods where the benchmark was positive
// (up) or negative (down).
func captureRatio(p, b []float64, up bool) float64 {
	var sumP, sumB float64
	count := 0
	for i := range b {
		if (up && b[i] > 0) || (!up && b[i] < 0) {
			sumP += p[i]
			sumB += b[i]
			count++
		}
	}
	if count == 0 || sumB == 0 {
		return 0
	}
	return (sumP / float64(count)) / (sumB / float64(count))
}

package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/internal/modules/performance"
	"github.com/aristath/chainfolio/internal/modules/risk"
	"github.com/aristath/chainfolio/pkg/logger"
)

// Backtester replays a strategy over historical returns one day at a time.
// Each day either holds (applying the day's return with the weights fixed at
// the last rebalance) or rebalances first using only data strictly before
// that day, then holds. The run is fully deterministic for identical inputs.
type Backtester struct {
	log  zerolog.Logger
	risk *risk.Calculator
	perf *performance.Analytics
}

func NewBacktester(log zerolog.Logger) *Backtester {
	return &Backtester{
		log:  logger.Component(log, "backtest"),
		risk: risk.NewCalculator(log),
		perf: performance.NewAnalytics(log),
	}
}

// Run simulates one strategy. benchmark, when non-nil, must be aligned to the
// same dates as matrix and enables the benchmark comparison block.
func (b *Backtester) Run(strategy Strategy, matrix domain.ReturnMatrix, benchmark []float64, config domain.BacktestConfig) (domain.BacktestResult, error) {
	if strategy == nil {
		return domain.BacktestResult{}, fmt.Errorf("strategy is required")
	}
	if config.InitialCapital <= 0 {
		return domain.BacktestResult{}, fmt.Errorf("initial capital must be positive")
	}
	if len(matrix.Assets) == 0 {
		return domain.BacktestResult{}, fmt.Errorf("no assets in return matrix")
	}
	if benchmark != nil && len(benchmark) != len(matrix.Dates) {
		return domain.BacktestResult{}, fmt.Errorf("benchmark length %d does not match %d dates", len(benchmark), len(matrix.Dates))
	}

	first, last := simulationRange(matrix.Dates, config)
	if first < 0 {
		return domain.BacktestResult{}, fmt.Errorf("no data in [%s, %s)",
			config.Start.Format("2006-01-02"), config.End.Format("2006-01-02"))
	}

	result := domain.BacktestResult{Strategy: strategy.Name()}
	value := config.InitialCapital
	pos := assetIndex(matrix.Assets)
	var weights domain.PortfolioWeights
	var benchReturns []float64

	for i := first; i <= last; i++ {
		date := matrix.Dates[i]

		if weights == nil || isRebalanceDate(date, config.RebalanceFrequency) {
			target := b.targetWeights(strategy, matrix, i)
			if weights == nil {
				weights = target
			} else {
				value = b.applyTrades(&result, weights, target, value, date, config)
				weights = target
			}
		}

		dayReturn := 0.0
		for asset, w := range weights {
			dayReturn += w * matrix.Returns[i][pos[asset]]
		}
		value *= 1 + dayReturn

		result.Dates = append(result.Dates, date)
		result.Values = append(result.Values, value)
		result.Returns = append(result.Returns, dayReturn)
		result.WeightHistory = append(result.WeightHistory, weights.Clone())
		if benchmark != nil {
			benchReturns = append(benchReturns, benchmark[i])
		}
	}

	result.Risk = b.risk.CalculateWithValues(result.Returns, result.Values)
	if benchmark != nil {
		metrics := b.perf.CalculateWithBenchmark(result.Returns, benchReturns, config.RiskFreeRate)
		result.Performance = metrics
		if metrics.Benchmark != nil {
			result.Benchmark = benchmarkBlock(metrics, benchReturns)
		}
	} else {
		result.Performance = b.perf.Calculate(result.Returns, config.RiskFreeRate)
	}

	b.log.Info().
		Str("strategy", strategy.Name()).
		Int("days", len(result.Dates)).
		Int("trades", len(result.Trades)).
		Float64("final_value", value).
		Msg("backtest complete")

	return result, nil
}

// targetWeights asks the strategy for weights using only history strictly
// before index i, normalized to sum 1. Strategy failures fall back to equal
// weights so a short warmup window cannot abort the simulation.
func (b *Backtester) targetWeights(strategy Strategy, matrix domain.ReturnMatrix, i int) domain.PortfolioWeights {
	history := domain.ReturnMatrix{
		Assets:  matrix.Assets,
		Dates:   matrix.Dates[:i],
		Returns: matrix.Returns[:i],
	}
	target, err := strategy.Weights(history)
	if err != nil || len(target) == 0 {
		b.log.Debug().Err(err).Str("strategy", strategy.Name()).
			Time("date", dateAt(matrix.Dates, i)).Msg("strategy fallback to equal weights")
		return domain.EqualWeights(matrix.Assets)
	}
	if err := target.Normalize(); err != nil {
		b.log.Debug().Err(err).Str("strategy", strategy.Name()).Msg("unusable strategy weights, falling back")
		return domain.EqualWeights(matrix.Assets)
	}
	return target
}

// applyTrades diffs current against target weights, books every trade whose
// absolute notional clears the minimum size, and deducts transaction costs
// from the portfolio value when enabled.
func (b *Backtester) applyTrades(result *domain.BacktestResult, current, target domain.PortfolioWeights, value float64, date time.Time, config domain.BacktestConfig) float64 {
	assets := make(map[string]struct{}, len(current)+len(target))
	for a := range current {
		assets[a] = struct{}{}
	}
	for a := range target {
		assets[a] = struct{}{}
	}

	ordered := make([]string, 0, len(assets))
	for a := range assets {
		ordered = append(ordered, a)
	}
	sort.Strings(ordered)

	totalCost := decimal.Zero
	for _, asset := range ordered {
		delta := target[asset] - current[asset]
		notional := math.Abs(delta) * value
		if notional < config.MinTradeSize {
			continue
		}

		side := "buy"
		if delta < 0 {
			side = "sell"
		}
		trade := domain.Trade{
			ID:       uuid.New().String(),
			Date:     date,
			Asset:    asset,
			Side:     side,
			Notional: decimal.NewFromFloat(notional),
		}
		if config.ApplyCosts {
			trade.Cost = trade.Notional.Mul(decimal.NewFromFloat(config.TransactionCost))
			totalCost = totalCost.Add(trade.Cost)
		}
		result.Trades = append(result.Trades, trade)
	}

	cost, _ := totalCost.Float64()
	return value - cost
}

// isRebalanceDate implements the configured calendar heuristic. Monthly,
// quarterly and annual frequencies trigger on a Monday in the first seven
// days of the applicable months, which is not always the first business day
// of the period; this matches long-standing behavior and stays as is.
func isRebalanceDate(date time.Time, freq domain.RebalanceFrequency) bool {
	switch freq {
	case domain.RebalanceDaily:
		return true
	case domain.RebalanceWeekly:
		return date.Weekday() == time.Monday
	case domain.RebalanceMonthly:
		return date.Day() <= 7 && date.Weekday() == time.Monday
	case domain.RebalanceQuarterly:
		month := date.Month()
		inQuarterStart := month == time.January || month == time.April || month == time.July || month == time.October
		return inQuarterStart && date.Day() <= 7 && date.Weekday() == time.Monday
	case domain.RebalanceAnnually:
		return date.Month() == time.January && date.Day() <= 7 && date.Weekday() == time.Monday
	case domain.RebalanceNever:
		return false
	default:
		return false
	}
}

func simulationRange(dates []time.Time, config domain.BacktestConfig) (first, last int) {
	first, last = -1, -1
	for i, d := range dates {
		if !config.Start.IsZero() && d.Before(config.Start) {
			continue
		}
		if !config.End.IsZero() && !d.Before(config.End) {
			break
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last
}

func assetIndex(assets []string) map[string]int {
	pos := make(map[string]int, len(assets))
	for i, a := range assets {
		pos[a] = i
	}
	return pos
}

func dateAt(dates []time.Time, i int) time.Time {
	if i >= 0 && i < len(dates) {
		return dates[i]
	}
	return time.Time{}
}

func benchmarkBlock(metrics domain.PerformanceMetrics, benchReturns []float64) *domain.BacktestBenchmark {
	cmp := metrics.Benchmark
	benchTotal := 1.0
	for _, r := range benchReturns {
		benchTotal *= 1 + r
	}
	return &domain.BacktestBenchmark{
		ExcessReturn:     metrics.TotalReturn - (benchTotal - 1),
		TrackingError:    cmp.TrackingError,
		InformationRatio: cmp.InformationRatio,
		Beta:             cmp.Beta,
		Alpha:            cmp.Alpha,
		Correlation:      cmp.Correlation,
		UpCapture:        cmp.UpCapture,
		DownCapture:      cmp.DownCapture,
	}
}

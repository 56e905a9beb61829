package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chainfolio/internal/domain"
)

func testBacktester() *Backtester {
	return NewBacktester(zerolog.Nop())
}

// deterministic pseudo-market: smooth but non-constant returns per asset.
func marketMatrix(days int, assets []string) domain.ReturnMatrix {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC) // a Monday
	dates := make([]time.Time, days)
	returns := make([][]float64, days)
	for i := 0; i < days; i++ {
		dates[i] = base.AddDate(0, 0, i)
		row := make([]float64, len(assets))
		for j := range assets {
			row[j] = 0.0005*float64(j+1) + 0.01*math.Sin(float64(i)*0.7+float64(j)*1.3)
		}
		returns[i] = row
	}
	return domain.ReturnMatrix{Assets: assets, Dates: dates, Returns: returns}
}

func defaultConfig() domain.BacktestConfig {
	return domain.BacktestConfig{
		InitialCapital:     100000,
		RebalanceFrequency: domain.RebalanceMonthly,
		TransactionCost:    0.001,
		MinTradeSize:       10,
		ApplyCosts:         true,
	}
}

func TestNeverRebalanceHoldsFirstWeights(t *testing.T) {
	matrix := marketMatrix(60, []string{"AAA", "BBB"})
	config := defaultConfig()
	config.RebalanceFrequency = domain.RebalanceNever

	result, err := testBacktester().Run(EqualWeightStrategy{}, matrix, nil, config)

	require.NoError(t, err)
	require.NotEmpty(t, result.WeightHistory)
	first := result.WeightHistory[0]
	for i, weights := range result.WeightHistory {
		for asset, w := range first {
			assert.Equal(t, w, weights[asset], "day %d asset %s", i, asset)
		}
	}
	assert.Empty(t, result.Trades)
}

func TestBacktestDeterminism(t *testing.T) {
	matrix := marketMatrix(90, []string{"AAA", "BBB", "CCC"})
	strategy := NewMinVarianceStrategy(zerolog.Nop())
	config := defaultConfig()

	first, err := testBacktester().Run(strategy, matrix, nil, config)
	require.NoError(t, err)
	second, err := testBacktester().Run(strategy, matrix, nil, config)
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Returns, second.Returns)
}

func TestNoLookahead(t *testing.T) {
	// Perturbing data strictly after a date must not change any weight
	// decision made at or before that date.
	matrix := marketMatrix(90, []string{"AAA", "BBB", "CCC"})
	strategy := NewMinVarianceStrategy(zerolog.Nop())
	config := defaultConfig()
	config.RebalanceFrequency = domain.RebalanceWeekly

	baseline, err := testBacktester().Run(strategy, matrix, nil, config)
	require.NoError(t, err)

	perturbed := marketMatrix(90, []string{"AAA", "BBB", "CCC"})
	cut := 70
	for i := cut; i < len(perturbed.Returns); i++ {
		for j := range perturbed.Returns[i] {
			perturbed.Returns[i][j] = -0.05
		}
	}

	altered, err := testBacktester().Run(strategy, perturbed, nil, config)
	require.NoError(t, err)

	for i := 0; i < cut; i++ {
		for asset, w := range baseline.WeightHistory[i] {
			assert.Equal(t, w, altered.WeightHistory[i][asset], "day %d asset %s", i, asset)
		}
	}
}

func TestWeeklyRebalancesOnMondays(t *testing.T) {
	matrix := marketMatrix(30, []string{"AAA", "BBB"})
	config := defaultConfig()
	config.RebalanceFrequency = domain.RebalanceWeekly
	config.MinTradeSize = 0

	// A strategy that alternates allocations so every rebalance trades.
	strategy := &flipStrategy{}
	result, err := testBacktester().Run(strategy, matrix, nil, config)
	require.NoError(t, err)

	for _, trade := range result.Trades {
		assert.Equal(t, time.Monday, trade.Date.Weekday())
	}
	assert.NotEmpty(t, result.Trades)
}

type flipStrategy struct{ calls int }

func (*flipStrategy) Name() string { return "flip" }

func (s *flipStrategy) Weights(history domain.ReturnMatrix) (domain.PortfolioWeights, error) {
	s.calls++
	if s.calls%2 == 0 {
		return domain.PortfolioWeights{"AAA": 0.8, "BBB": 0.2}, nil
	}
	return domain.PortfolioWeights{"AAA": 0.2, "BBB": 0.8}, nil
}

func TestMinTradeSizeFiltersSmallTrades(t *testing.T) {
	matrix := marketMatrix(30, []string{"AAA", "BBB"})
	config := defaultConfig()
	config.RebalanceFrequency = domain.RebalanceDaily
	config.MinTradeSize = 1e12 // nothing clears this bar

	result, err := testBacktester().Run(&flipStrategy{}, matrix, nil, config)

	require.NoError(t, err)
	assert.Empty(t, result.Trades)
}

func TestTransactionCostsReduceValue(t *testing.T) {
	matrix := marketMatrix(60, []string{"AAA", "BBB"})

	withCosts := defaultConfig()
	withCosts.RebalanceFrequency = domain.RebalanceDaily
	withCosts.MinTradeSize = 0
	withCosts.TransactionCost = 0.01

	free := withCosts
	free.ApplyCosts = false

	costed, err := testBacktester().Run(&flipStrategy{}, matrix, nil, withCosts)
	require.NoError(t, err)
	uncosted, err := testBacktester().Run(&flipStrategy{}, matrix, nil, free)
	require.NoError(t, err)

	assert.Less(t, costed.Values[len(costed.Values)-1], uncosted.Values[len(uncosted.Values)-1])
	for _, trade := range costed.Trades {
		assert.True(t, trade.Cost.IsPositive())
	}
}

func TestBenchmarkComparisonBlock(t *testing.T) {
	matrix := marketMatrix(90, []string{"AAA", "BBB"})
	benchmark := make([]float64, len(matrix.Dates))
	for i := range benchmark {
		benchmark[i] = 0.0003 + 0.008*math.Sin(float64(i)*0.5)
	}

	result, err := testBacktester().Run(EqualWeightStrategy{}, matrix, benchmark, defaultConfig())

	require.NoError(t, err)
	require.NotNil(t, result.Benchmark)
	assert.NotZero(t, result.Benchmark.Beta)
	assert.GreaterOrEqual(t, result.Benchmark.TrackingError, 0.0)
}

func TestRunRespectsDateRange(t *testing.T) {
	matrix := marketMatrix(60, []string{"AAA", "BBB"})
	config := defaultConfig()
	config.Start = matrix.Dates[10]
	config.End = matrix.Dates[40]

	result, err := testBacktester().Run(EqualWeightStrategy{}, matrix, nil, config)

	require.NoError(t, err)
	assert.Equal(t, 30, len(result.Dates))
	assert.Equal(t, matrix.Dates[10], result.Dates[0])
	assert.True(t, result.Dates[len(result.Dates)-1].Before(config.End))
}

func TestRunAllComparison(t *testing.T) {
	matrix := marketMatrix(120, []string{"AAA", "BBB", "CCC"})
	strategies := []Strategy{
		EqualWeightStrategy{},
		NewMinVarianceStrategy(zerolog.Nop()),
		NewHRPStrategy(),
	}

	cmp, err := testBacktester().RunAll(strategies, matrix, nil, defaultConfig())

	require.NoError(t, err)
	assert.Len(t, cmp.Results, 3)
	assert.NotEmpty(t, cmp.BestByReturn)
	assert.NotEmpty(t, cmp.BestBySharpe)
	assert.NotEmpty(t, cmp.LowestDrawdown)

	names := map[string]bool{}
	for _, r := range cmp.Results {
		names[r.Strategy] = true
	}
	assert.True(t, names[cmp.BestByReturn])
	assert.True(t, names[cmp.BestBySharpe])
	assert.True(t, names[cmp.LowestDrawdown])
}

type fixedStrategy struct {
	name    string
	weights domain.PortfolioWeights
}

func (s fixedStrategy) Name() string { return s.name }

func (s fixedStrategy) Weights(domain.ReturnMatrix) (domain.PortfolioWeights, error) {
	return s.weights.Clone(), nil
}

func TestRunAllPicksSmallestDrawdown(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	matrix := domain.ReturnMatrix{Assets: []string{"CRASH", "FLAT"}}
	for i := 0; i < 30; i++ {
		matrix.Dates = append(matrix.Dates, base.AddDate(0, 0, i))
		crash := 0.001
		if i >= 10 && i < 20 {
			crash = -0.08
		}
		matrix.Returns = append(matrix.Returns, []float64{crash, 0.0005})
	}

	strategies := []Strategy{
		fixedStrategy{name: "risky", weights: domain.PortfolioWeights{"CRASH": 1}},
		fixedStrategy{name: "safe", weights: domain.PortfolioWeights{"FLAT": 1}},
	}

	cmp, err := testBacktester().RunAll(strategies, matrix, nil, defaultConfig())

	require.NoError(t, err)
	assert.Equal(t, "safe", cmp.LowestDrawdown)
	assert.Less(t, cmp.SmallestDrawdown, 0.01)
	assert.Equal(t, "safe", cmp.BestByReturn)
}

func TestMomentumStrategyFallsBackOnShortHistory(t *testing.T) {
	matrix := marketMatrix(10, []string{"AAA", "BBB"})
	strategy := NewMomentumStrategy()

	_, err := strategy.Weights(matrix)
	assert.Error(t, err)

	// The backtester resolves the error as equal weights.
	result, err := testBacktester().Run(strategy, matrix, nil, defaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.WeightHistory[0]["AAA"], 1e-12)
}

func TestMomentumStrategyPrefersTrendingAsset(t *testing.T) {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	days := 60
	dates := make([]time.Time, days)
	returns := make([][]float64, days)
	for i := 0; i < days; i++ {
		dates[i] = base.AddDate(0, 0, i)
		// AAA drifts up with pullbacks so RSI stays below the overbought
		// ceiling, BBB goes nowhere.
		r := 0.008
		if i%2 == 1 {
			r = -0.006
		}
		returns[i] = []float64{r, 0.0}
	}
	matrix := domain.ReturnMatrix{Assets: []string{"AAA", "BBB"}, Dates: dates, Returns: returns}

	weights, err := NewMomentumStrategy().Weights(matrix)

	require.NoError(t, err)
	assert.Greater(t, weights["AAA"], weights["BBB"])
}

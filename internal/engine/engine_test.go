package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chainfolio/internal/alerts"
	"github.com/aristath/chainfolio/internal/cache"
	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/internal/marketdata"
	"github.com/aristath/chainfolio/internal/modules/backtest"
	"github.com/aristath/chainfolio/internal/modules/optimization"
)

func testEngine(t *testing.T) (*Engine, *cache.MemoryStore, *alerts.CollectorSink) {
	t.Helper()
	feed, err := marketdata.NewStaticProvider(nil, nil)
	require.NoError(t, err)
	store := cache.NewMemoryStore()
	sink := alerts.NewCollectorSink()
	e := New(zerolog.Nop(), feed, store, sink, Config{MonteCarloSeed: 42})
	return e, store, sink
}

func sampleMatrix(days int) domain.ReturnMatrix {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, days)
	returns := make([][]float64, days)
	for i := 0; i < days; i++ {
		dates[i] = base.AddDate(0, 0, i)
		returns[i] = []float64{
			0.001 + 0.01*math.Sin(float64(i)*0.9),
			0.0008 + 0.012*math.Cos(float64(i)*0.6),
		}
	}
	return domain.ReturnMatrix{Assets: []string{"BTC", "ETH"}, Dates: dates, Returns: returns}
}

func portfolioReturns(matrix domain.ReturnMatrix) []float64 {
	out := make([]float64, len(matrix.Returns))
	for i, row := range matrix.Returns {
		out[i] = 0.5*row[0] + 0.5*row[1]
	}
	return out
}

func TestAnalyzeComprehensiveReturnsOnly(t *testing.T) {
	e, store, _ := testEngine(t)
	matrix := sampleMatrix(100)

	out := e.AnalyzeComprehensive(AnalysisInput{
		PortfolioID: "p1",
		Returns:     portfolioReturns(matrix),
	})

	assert.Empty(t, out.Error)
	assert.Nil(t, out.Diversification)
	assert.Nil(t, out.Stress)
	assert.Empty(t, out.Suggestions)
	assert.NotZero(t, out.Risk.AnnualVolatility)
	assert.NotZero(t, out.Performance.TotalReturn)

	var cached ComprehensiveAnalysis
	require.NoError(t, store.Get("analysis:p1", &cached))
	assert.Equal(t, "p1", cached.PortfolioID)
}

func TestAnalyzeComprehensiveAssetLevel(t *testing.T) {
	e, _, _ := testEngine(t)
	matrix := sampleMatrix(120)
	weights := domain.PortfolioWeights{"BTC": 0.5, "ETH": 0.5}

	out := e.AnalyzeComprehensive(AnalysisInput{
		PortfolioID:  "p1",
		Returns:      portfolioReturns(matrix),
		Matrix:       matrix,
		Weights:      weights,
		InitialValue: 100000,
		Scenarios: []domain.StressScenario{
			{Name: "shock", Type: domain.ScenarioHypothetical, Shocks: map[string]float64{"BTC": -0.3, "ETH": -0.2}},
		},
	})

	assert.Empty(t, out.Error)
	require.NotNil(t, out.Diversification)
	assert.Greater(t, out.Diversification.DiversificationScore, 0.0)
	require.NotNil(t, out.Stress)
	assert.Equal(t, 1, out.Stress.ScenarioRuns)
	require.Len(t, out.Suggestions, 3)
	for name, result := range out.Suggestions {
		assert.True(t, result.Success, name)
		sum := 0.0
		for _, w := range result.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6, name)
	}
}

func TestAnalyzeComprehensiveBestEffort(t *testing.T) {
	e, _, _ := testEngine(t)
	// Single observation: diversification still runs on the degenerate
	// matrix, but optimization suggestions cannot.
	matrix := domain.ReturnMatrix{
		Assets:  []string{"BTC", "ETH"},
		Dates:   []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Returns: [][]float64{{0.01, 0.02}},
	}

	out := e.AnalyzeComprehensive(AnalysisInput{
		PortfolioID: "p1",
		Returns:     []float64{0.015},
		Matrix:      matrix,
		Weights:     domain.PortfolioWeights{"BTC": 0.5, "ETH": 0.5},
	})

	assert.NotEmpty(t, out.Error)
	assert.NotNil(t, out.Diversification)
	assert.Empty(t, out.Suggestions)
}

func TestAlertPolicyEmitsToSink(t *testing.T) {
	e, _, sink := testEngine(t)
	// A steady decline breaches VaR, drawdown, and Sharpe policy floors.
	returns := make([]float64, 60)
	for i := range returns {
		returns[i] = -0.06
	}

	out := e.AnalyzeComprehensive(AnalysisInput{PortfolioID: "p1", Returns: returns})

	assert.NotEmpty(t, out.Alerts)
	assert.NotEmpty(t, sink.Messages())

	types := map[domain.AlertType]int{}
	drawdownFlagged := false
	for _, a := range out.Alerts {
		types[a.Type]++
		if strings.Contains(a.Message, "drawdown") {
			drawdownFlagged = true
		}
	}
	assert.Equal(t, 2, types[domain.AlertRiskThreshold]) // VaR and drawdown
	assert.Equal(t, 1, types[domain.AlertPerformance])
	assert.True(t, drawdownFlagged)
}

func TestAlertPolicyFlagsDrawdownAlone(t *testing.T) {
	e, _, _ := testEngine(t)
	// A slow 2% daily bleed stays inside the VaR floor but compounds to a
	// drawdown near 55%, well past the policy floor.
	returns := make([]float64, 40)
	for i := range returns {
		returns[i] = -0.02
	}

	out := e.AnalyzeComprehensive(AnalysisInput{PortfolioID: "p1", Returns: returns})

	riskAlerts := 0
	drawdownFlagged := false
	for _, a := range out.Alerts {
		if a.Type == domain.AlertRiskThreshold {
			riskAlerts++
			if strings.Contains(a.Message, "drawdown") {
				drawdownFlagged = true
			}
		}
	}
	assert.Equal(t, 1, riskAlerts)
	assert.True(t, drawdownFlagged)
}

func TestOptimizePortfolioCachesSuccess(t *testing.T) {
	e, store, _ := testEngine(t)
	mu := map[string]float64{"BTC": 0.10, "ETH": 0.20}
	cov := domain.CovarianceMatrix{
		Assets: []string{"BTC", "ETH"},
		Data:   [][]float64{{0.04, 0}, {0, 0.04}},
	}

	result := e.OptimizePortfolio(mu, cov, domain.ObjectiveMaxSharpe, optimization.Options{})

	require.True(t, result.Success, result.Message)
	key := cache.Key("optimization:max_sharpe", cov.Assets)
	var cached domain.OptimizationResult
	require.NoError(t, store.Get(key, &cached))
	assert.True(t, cached.Success)
}

func TestRunBacktestPassThrough(t *testing.T) {
	e, store, _ := testEngine(t)
	matrix := sampleMatrix(90)
	config := domain.BacktestConfig{
		InitialCapital:     50000,
		RebalanceFrequency: domain.RebalanceMonthly,
	}

	result, err := e.RunBacktest(backtest.EqualWeightStrategy{}, matrix, nil, config)

	require.NoError(t, err)
	assert.Equal(t, "equal_weight", result.Strategy)
	assert.Len(t, result.Values, 90)

	key := cache.Key("backtest:equal_weight", matrix.Assets)
	var cached domain.BacktestResult
	assert.NoError(t, store.Get(key, &cached))
}

func TestGenerateReportSections(t *testing.T) {
	e, store, _ := testEngine(t)
	matrix := sampleMatrix(120)

	analysis := e.AnalyzeComprehensive(AnalysisInput{
		PortfolioID: "p1",
		Returns:     portfolioReturns(matrix),
		Matrix:      matrix,
		Weights:     domain.PortfolioWeights{"BTC": 0.5, "ETH": 0.5},
	})
	report := e.GenerateReport(analysis)

	assert.Contains(t, report, "# Portfolio Report: p1")
	assert.Contains(t, report, "## Risk")
	assert.Contains(t, report, "## Performance")
	assert.Contains(t, report, "## Diversification")
	assert.Contains(t, report, "## Optimization Suggestions")

	var cached string
	assert.NoError(t, store.Get("report:p1", &cached))
	assert.Equal(t, report, cached)
}

func TestMonitoringPassThrough(t *testing.T) {
	e, _, _ := testEngine(t)
	defer e.Shutdown()

	config := domain.MonitoringConfig{
		PollInterval: 50 * time.Millisecond,
		Positions:    map[string]float64{"BTC": 1},
	}
	require.NoError(t, e.StartRealTimeMonitoring("p1", config))
	assert.Error(t, e.StartRealTimeMonitoring("p1", config))
	require.NoError(t, e.StopRealTimeMonitoring("p1"))
	assert.Error(t, e.StopRealTimeMonitoring("p1"))
}

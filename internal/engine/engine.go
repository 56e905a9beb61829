// Package engine wires the analytics calculators into one orchestrating
// facade: comprehensive analysis, optimization, backtesting, report
// generation, and real-time monitoring start/stop. Results are cached as a
// side effect; alerts from the fixed policy go to the injected sink.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/alerts"
	"github.com/aristath/chainfolio/internal/cache"
	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/internal/marketdata"
	"github.com/aristath/chainfolio/internal/modules/backtest"
	"github.com/aristath/chainfolio/internal/modules/diversification"
	"github.com/aristath/chainfolio/internal/modules/monitor"
	"github.com/aristath/chainfolio/internal/modules/optimization"
	"github.com/aristath/chainfolio/internal/modules/performance"
	"github.com/aristath/chainfolio/internal/modules/risk"
	"github.com/aristath/chainfolio/internal/modules/stress"
	"github.com/aristath/chainfolio/pkg/logger"
)

// Fixed alert policy thresholds for comprehensive analysis.
const (
	policyVaR95Floor    = -0.05
	policyDrawdownFloor = -0.15
	policySharpeFloor   = 0.5

	analysisTTL = 30 * time.Minute
)

// AnalysisInput carries everything one comprehensive run can use. Returns is
// the only required field; asset-level Matrix and Weights unlock the
// diversification, stress, and optimization sections.
type AnalysisInput struct {
	PortfolioID  string
	Returns      []float64
	Values       []float64
	Matrix       domain.ReturnMatrix
	Weights      domain.PortfolioWeights
	Sectors      map[string]string
	Scenarios    []domain.StressScenario
	InitialValue float64
	RiskFreeRate float64
}

// ComprehensiveAnalysis aggregates every section the engine could compute.
// Error carries the first internal failure; sections computed before the
// failure are still populated.
type ComprehensiveAnalysis struct {
	PortfolioID     string                               `json:"portfolio_id"`
	GeneratedAt     time.Time                            `json:"generated_at"`
	Risk            domain.RiskMetrics                   `json:"risk"`
	Performance     domain.PerformanceMetrics            `json:"performance"`
	Diversification *domain.DiversificationMetrics       `json:"diversification,omitempty"`
	Stress          *domain.StressReport                 `json:"stress,omitempty"`
	Suggestions     map[string]domain.OptimizationResult `json:"suggestions,omitempty"`
	Alerts          []domain.Alert                       `json:"alerts,omitempty"`
	Error           string                               `json:"error,omitempty"`
}

// Engine is the orchestrating facade over the analytics calculators.
type Engine struct {
	log zerolog.Logger

	risk      *risk.Calculator
	perf      *performance.Analytics
	divers    *diversification.Analyzer
	optimizer *optimization.Optimizer
	stress    *stress.Tester
	backtest  *backtest.Backtester
	monitor   *monitor.Monitor

	store cache.Store
	sink  alerts.Sink
}

// Config tunes the engine's collaborators.
type Config struct {
	MonteCarloSeed        uint64
	MonteCarloSimulations int
	MonteCarloHorizonDays int
	PriceRefreshEvery     time.Duration
	MonitorPollInterval   time.Duration
	TransactionCost       float64
}

func New(log zerolog.Logger, feed marketdata.PriceFeed, store cache.Store, sink alerts.Sink, cfg Config) *Engine {
	return &Engine{
		log:       logger.Component(log, "engine"),
		risk:      risk.NewCalculator(log),
		perf:      performance.NewAnalytics(log),
		divers:    diversification.NewAnalyzer(log),
		optimizer: optimization.NewOptimizer(log),
		stress:    stress.NewTesterWithDefaults(log, cfg.MonteCarloSeed, cfg.MonteCarloSimulations, cfg.MonteCarloHorizonDays),
		backtest:  backtest.NewBacktester(log),
		monitor: monitor.New(log, feed, store, sink, monitor.Config{
			PriceRefreshEvery: cfg.PriceRefreshEvery,
			PollInterval:      cfg.MonitorPollInterval,
			TransactionCost:   cfg.TransactionCost,
		}),
		store: store,
		sink:  sink,
	}
}

// AnalyzeComprehensive runs risk and performance always, and the asset-level
// sections when returns matrix and weights are present. Sections are
// best-effort: a failure in one is recorded in Error and the rest still
// return.
func (e *Engine) AnalyzeComprehensive(input AnalysisInput) ComprehensiveAnalysis {
	out := ComprehensiveAnalysis{
		PortfolioID: input.PortfolioID,
		GeneratedAt: time.Now().UTC(),
	}

	if len(input.Values) == len(input.Returns) && len(input.Values) > 0 {
		out.Risk = e.risk.CalculateWithValues(input.Returns, input.Values)
	} else {
		out.Risk = e.risk.Calculate(input.Returns)
	}
	out.Performance = e.perf.Calculate(input.Returns, input.RiskFreeRate)

	if len(input.Matrix.Assets) > 0 && len(input.Weights) > 0 {
		e.analyzeAssetLevel(input, &out)
	}

	out.Alerts = e.applyAlertPolicy(input.PortfolioID, out.Risk, out.Performance)
	for _, alert := range out.Alerts {
		e.sink.Send(alert.Message, []string{alert.Type.String(), alert.PortfolioID})
	}

	e.cacheResult("analysis:"+input.PortfolioID, out)
	return out
}

func (e *Engine) analyzeAssetLevel(input AnalysisInput, out *ComprehensiveAnalysis) {
	metrics := e.divers.Analyze(input.Matrix, input.Weights, input.Sectors)
	out.Diversification = &metrics

	if len(input.Scenarios) > 0 {
		initial := input.InitialValue
		if initial <= 0 {
			initial = 1
		}
		report := e.stress.RunBatch(stress.Portfolio{
			Weights:      input.Weights,
			Matrix:       input.Matrix,
			InitialValue: initial,
		}, input.Scenarios)
		out.Stress = &report
	}

	mu, cov, err := optimization.AnnualizedStatistics(input.Matrix, true)
	if err != nil {
		e.recordError(out, fmt.Errorf("optimization suggestions: %w", err))
		return
	}
	out.Suggestions = map[string]domain.OptimizationResult{}
	for _, objective := range []domain.Objective{
		domain.ObjectiveMaxSharpe,
		domain.ObjectiveMinVariance,
		domain.ObjectiveRiskParity,
	} {
		out.Suggestions[objective.String()] = e.optimizer.Optimize(mu, cov, objective, optimization.Options{})
	}
}

// applyAlertPolicy evaluates the fixed thresholds every comprehensive run
// checks regardless of any per-portfolio monitoring config.
func (e *Engine) applyAlertPolicy(portfolioID string, riskMetrics domain.RiskMetrics, perfMetrics domain.PerformanceMetrics) []domain.Alert {
	var out []domain.Alert
	if riskMetrics.VaR95 < policyVaR95Floor {
		out = append(out, alerts.New(portfolioID, domain.AlertRiskThreshold,
			fmt.Sprintf("VaR95 %.2f%% below policy floor %.2f%%", riskMetrics.VaR95*100, policyVaR95Floor*100),
			map[string]float64{"var_95": riskMetrics.VaR95}))
	}
	// MaxDrawdown is a positive fraction; the floor is the signed threshold.
	if riskMetrics.MaxDrawdown > -policyDrawdownFloor {
		out = append(out, alerts.New(portfolioID, domain.AlertRiskThreshold,
			fmt.Sprintf("max drawdown %.2f%% below policy floor %.2f%%", -riskMetrics.MaxDrawdown*100, policyDrawdownFloor*100),
			map[string]float64{"max_drawdown": riskMetrics.MaxDrawdown}))
	}
	if perfMetrics.SharpeRatio < policySharpeFloor {
		out = append(out, alerts.New(portfolioID, domain.AlertPerformance,
			fmt.Sprintf("Sharpe ratio %.2f below policy floor %.2f", perfMetrics.SharpeRatio, policySharpeFloor),
			map[string]float64{"sharpe": perfMetrics.SharpeRatio}))
	}
	return out
}

// OptimizePortfolio is a pass-through to the optimizer that caches the
// result keyed by the sorted asset set.
func (e *Engine) OptimizePortfolio(expectedReturns map[string]float64, cov domain.CovarianceMatrix, objective domain.Objective, opts optimization.Options) domain.OptimizationResult {
	result := e.optimizer.Optimize(expectedReturns, cov, objective, opts)
	if result.Success {
		key := cache.Key("optimization:"+objective.String(), cov.Assets)
		e.cacheResult(key, result)
	}
	return result
}

// RunBacktest is a pass-through to the backtester that caches the result.
func (e *Engine) RunBacktest(strategy backtest.Strategy, matrix domain.ReturnMatrix, benchmark []float64, config domain.BacktestConfig) (domain.BacktestResult, error) {
	result, err := e.backtest.Run(strategy, matrix, benchmark, config)
	if err != nil {
		return domain.BacktestResult{}, err
	}
	e.cacheResult(cache.Key("backtest:"+strategy.Name(), matrix.Assets), result)
	return result, nil
}

// CompareStrategies runs a multi-strategy backtest.
func (e *Engine) CompareStrategies(strategies []backtest.Strategy, matrix domain.ReturnMatrix, benchmark []float64, config domain.BacktestConfig) (backtest.Comparison, error) {
	return e.backtest.RunAll(strategies, matrix, benchmark, config)
}

// StartRealTimeMonitoring begins live monitoring of a portfolio.
func (e *Engine) StartRealTimeMonitoring(portfolioID string, config domain.MonitoringConfig) error {
	return e.monitor.StartMonitoring(portfolioID, config)
}

// StopRealTimeMonitoring stops one portfolio's monitoring.
func (e *Engine) StopRealTimeMonitoring(portfolioID string) error {
	return e.monitor.StopMonitoring(portfolioID)
}

// Shutdown stops all monitoring workers.
func (e *Engine) Shutdown() {
	e.monitor.Stop()
}

// Monitor exposes the monitoring layer for rebalance suggestions and
// scheduled jobs.
func (e *Engine) Monitor() *monitor.Monitor {
	return e.monitor
}

func (e *Engine) cacheResult(key string, value interface{}) {
	if err := e.store.Set(key, value, analysisTTL); err != nil {
		e.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (e *Engine) recordError(out *ComprehensiveAnalysis, err error) {
	e.log.Warn().Err(err).Str("portfolio", out.PortfolioID).Msg("analysis section failed")
	if out.Error == "" {
		out.Error = err.Error()
	} else {
		out.Error = strings.Join([]string{out.Error, err.Error()}, "; ")
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskMetrics is the full risk measure set computed from one return series.
// VaR and CVaR are signed returns; the drawdown measures are positive
// fractions of the peak. A zero value is the defined neutral result for
// insufficient data.
type RiskMetrics struct {
	VaR95             float64 `json:"var_95"`
	VaR99             float64 `json:"var_99"`
	CVaR95            float64 `json:"cvar_95"`
	CVaR99            float64 `json:"cvar_99"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	AvgDrawdown       float64 `json:"avg_drawdown"`
	CurrentDrawdown   float64 `json:"current_drawdown"`
	DailyVolatility   float64 `json:"daily_volatility"`
	AnnualVolatility  float64 `json:"annual_volatility"`
	Skewness          float64 `json:"skewness"`
	Kurtosis          float64 `json:"kurtosis"`
	TailRatio         float64 `json:"tail_ratio"`
	PainIndex         float64 `json:"pain_index"`
	DownsideDeviation float64 `json:"downside_deviation"`
	RecoveryFactor    float64 `json:"recovery_factor"`
}

// BenchmarkComparison is the benchmark-relative block of performance metrics.
type BenchmarkComparison struct {
	Alpha            float64 `json:"alpha"`
	Beta             float64 `json:"beta"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
	Correlation      float64 `json:"correlation"`
	UpCapture        float64 `json:"up_capture"`
	DownCapture      float64 `json:"down_capture"`
}

// PerformanceMetrics is the return-based performance measure set.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	OmegaRatio       float64 `json:"omega_ratio"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
	BestDay          float64 `json:"best_day"`
	WorstDay         float64 `json:"worst_day"`
	Rolling30Return  float64 `json:"rolling_30_return"`
	Rolling90Return  float64 `json:"rolling_90_return"`

	Benchmark *BenchmarkComparison `json:"benchmark,omitempty"`
}

// OptimizationResult is the outcome of one optimization run. Callers must
// check Success before reading Weights.
type OptimizationResult struct {
	Weights        PortfolioWeights `json:"weights"`
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
	ExpectedReturn float64          `json:"expected_return"`
	Volatility     float64          `json:"volatility"`
	SharpeRatio    float64          `json:"sharpe_ratio"`
}

// FrontierPoint is one sampled portfolio on the efficient frontier.
type FrontierPoint struct {
	ExpectedReturn float64          `json:"expected_return"`
	Volatility     float64          `json:"volatility"`
	SharpeRatio    float64          `json:"sharpe_ratio"`
	Weights        PortfolioWeights `json:"weights"`
}

// StressScenario describes one stress-test scenario.
type StressScenario struct {
	Name        string             `json:"name"`
	Type        ScenarioType       `json:"type"`
	Parameters  map[string]float64 `json:"parameters,omitempty"`
	Shocks      map[string]float64 `json:"shocks,omitempty"`  // hypothetical: per-asset shock
	Factors     map[string]float64 `json:"factors,omitempty"` // factor_shock: named macro shocks
	Window      *DateWindow        `json:"window,omitempty"`  // historical: crisis window
	Probability *float64           `json:"probability,omitempty"`
}

// DateWindow is a half-open [Start, End) date range.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StressTestResult is the common outcome record of every scenario type.
type StressTestResult struct {
	ScenarioName   string        `json:"scenario_name"`
	ScenarioType   ScenarioType  `json:"scenario_type"`
	InitialValue   float64       `json:"initial_value"`
	StressedValue  float64       `json:"stressed_value"`
	LossAmount     float64       `json:"loss_amount"`
	LossPercentage float64       `json:"loss_percentage"`
	VaRImpact      float64       `json:"var_impact"`
	Duration       time.Duration `json:"duration"`
	RecoveryDays   *int          `json:"recovery_days,omitempty"`
}

// StressReport aggregates the results of a scenario batch.
type StressReport struct {
	Results      []StressTestResult `json:"results"`
	WorstLoss    float64            `json:"worst_loss"`
	AverageLoss  float64            `json:"average_loss"`
	CountOver10  int                `json:"count_over_10"`
	CountOver20  int                `json:"count_over_20"`
	WorstByName  string             `json:"worst_by_name"`
	ScenarioRuns int                `json:"scenario_runs"`
}

// Trade is one executed backtest trade. Notional and cost use exact decimal
// arithmetic so the ledger reconciles.
type Trade struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"date"`
	Asset    string          `json:"asset"`
	Side     string          `json:"side"` // "buy" or "sell"
	Notional decimal.Decimal `json:"notional"`
	Cost     decimal.Decimal `json:"cost"`
}

// BacktestConfig configures a backtest run.
type BacktestConfig struct {
	Start              time.Time          `json:"start"`
	End                time.Time          `json:"end"`
	InitialCapital     float64            `json:"initial_capital"`
	RebalanceFrequency RebalanceFrequency `json:"rebalance_frequency"`
	TransactionCost    float64            `json:"transaction_cost"` // fraction of traded notional
	MinTradeSize       float64            `json:"min_trade_size"`
	RiskFreeRate       float64            `json:"risk_free_rate"`
	ApplyCosts         bool               `json:"apply_costs"`
	Benchmark          string             `json:"benchmark,omitempty"`
}

// BacktestBenchmark is the benchmark comparison block of a backtest result.
type BacktestBenchmark struct {
	ExcessReturn     float64 `json:"excess_return"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"`
	Correlation      float64 `json:"correlation"`
	UpCapture        float64 `json:"up_capture"`
	DownCapture      float64 `json:"down_capture"`
}

// BacktestResult is the complete outcome of one backtest run.
type BacktestResult struct {
	Strategy      string             `json:"strategy"`
	Dates         []time.Time        `json:"dates"`
	Values        []float64          `json:"values"`
	Returns       []float64          `json:"returns"`
	WeightHistory []PortfolioWeights `json:"weight_history"` // aligned to Dates
	Trades        []Trade            `json:"trades"`
	Performance   PerformanceMetrics `json:"performance"`
	Risk          RiskMetrics        `json:"risk"`
	Benchmark     *BacktestBenchmark `json:"benchmark,omitempty"`
}

// SectorConcentration is the sector rollup of concentration measures.
type SectorConcentration struct {
	Weights    map[string]float64 `json:"weights"`
	HHI        float64            `json:"hhi"`
	EffectiveN float64            `json:"effective_n"`
}

// DiversificationMetrics is the correlation/concentration measure set.
type DiversificationMetrics struct {
	AvgCorrelation         float64              `json:"avg_correlation"`
	WeightedCorrelation    float64              `json:"weighted_correlation"`
	MinCorrelation         float64              `json:"min_correlation"`
	MaxCorrelation         float64              `json:"max_correlation"`
	BenchmarkCorrelation   float64              `json:"benchmark_correlation"`
	HHI                    float64              `json:"hhi"`
	EffectiveN             float64              `json:"effective_n"`
	TopKConcentration      float64              `json:"top_k_concentration"`
	Gini                   float64              `json:"gini"`
	ShannonEntropy         float64              `json:"shannon_entropy"`
	DiversificationRatio   float64              `json:"diversification_ratio"`
	RiskContributions      map[string]float64   `json:"risk_contributions"`
	ClusterCount           int                  `json:"cluster_count"`
	Sector                 *SectorConcentration `json:"sector,omitempty"`
	DiversificationScore   float64              `json:"diversification_score"`
	CorrelationMatrix      [][]float64          `json:"correlation_matrix,omitempty"`
	CorrelationAssetsOrder []string             `json:"correlation_assets_order,omitempty"`
}

// RebalanceSuggestion is one proposed trade from the monitor.
type RebalanceSuggestion struct {
	Asset         string  `json:"asset"`
	Side          string  `json:"side"`
	Notional      float64 `json:"notional"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
}

// RebalancePlan summarizes the monitor's rebalance proposal.
type RebalancePlan struct {
	Suggestions   []RebalanceSuggestion `json:"suggestions"`
	TotalNotional float64               `json:"total_notional"`
	EstimatedCost float64               `json:"estimated_cost"`
}

// Alert is a typed monitoring alert record.
type Alert struct {
	ID          string             `json:"id"`
	PortfolioID string             `json:"portfolio_id"`
	Type        AlertType          `json:"type"`
	Message     string             `json:"message"`
	Payload     map[string]float64 `json:"payload,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// MonitoringConfig holds the thresholds and cadence for one monitored
// portfolio. Zero-valued floors disable the corresponding check.
type MonitoringConfig struct {
	PollInterval       time.Duration      `json:"poll_interval"`
	TrailingWindow     int                `json:"trailing_window"` // observations kept for metric recomputation
	VaR95Floor         float64            `json:"var_95_floor"`    // alert when VaR95 < floor (both negative)
	MaxDrawdownFloor   float64            `json:"max_drawdown_floor"` // signed; -0.15 alerts past a 15% drawdown
	SharpeFloor        float64            `json:"sharpe_floor"`
	PositionCeiling    float64            `json:"position_ceiling"` // alert when any weight > ceiling
	RebalanceThreshold float64            `json:"rebalance_threshold"`
	TargetWeights      PortfolioWeights   `json:"target_weights,omitempty"`
	Positions          map[string]float64 `json:"positions"` // asset -> quantity
	RiskFreeRate       float64            `json:"risk_free_rate"`
}

// PortfolioSnapshot is the monitor's view of a portfolio at one poll.
type PortfolioSnapshot struct {
	PortfolioID string             `json:"portfolio_id"`
	Timestamp   time.Time          `json:"timestamp"`
	TotalValue  float64            `json:"total_value"`
	Positions   map[string]float64 `json:"positions"` // asset -> quantity
	Prices      map[string]float64 `json:"prices"`    // asset -> last price
	Weights     PortfolioWeights   `json:"weights"`
	Risk        RiskMetrics        `json:"risk"`
	Performance PerformanceMetrics `json:"performance"`
}

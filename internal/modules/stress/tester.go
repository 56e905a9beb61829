package stress

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/internal/modules/optimization"
	"github.com/aristath/chainfolio/pkg/formulas"
	"github.com/aristath/chainfolio/pkg/logger"
)

const (
	defaultSimulations = 10000
	defaultHorizonDays = 252
	defaultConfidence  = 0.95
)

// Portfolio is the subject of a stress run: current weights, the historical
// return matrix used to calibrate scenarios, and the portfolio value to
// translate fractional losses into amounts. FactorLoadings maps
// asset -> factor name -> sensitivity and is only consulted by factor-shock
// scenarios.
type Portfolio struct {
	Weights        domain.PortfolioWeights
	Matrix         domain.ReturnMatrix
	InitialValue   float64
	FactorLoadings map[string]map[string]float64
}

// Tester evaluates stress scenarios against a portfolio. Monte Carlo draws
// are seeded so identical inputs reproduce identical results.
type Tester struct {
	log         zerolog.Logger
	seed        uint64
	simulations int
	horizonDays int
}

func NewTester(log zerolog.Logger, seed uint64) *Tester {
	return NewTesterWithDefaults(log, seed, defaultSimulations, defaultHorizonDays)
}

// NewTesterWithDefaults creates a tester whose Monte Carlo fallbacks replace
// the package defaults; a scenario's own parameters still win. Non-positive
// values fall back to the package defaults.
func NewTesterWithDefaults(log zerolog.Logger, seed uint64, simulations, horizonDays int) *Tester {
	if simulations <= 0 {
		simulations = defaultSimulations
	}
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	return &Tester{
		log:         logger.Component(log, "stress"),
		seed:        seed,
		simulations: simulations,
		horizonDays: horizonDays,
	}
}

// Run evaluates one scenario. Loss percentages are reported as positive
// fractions of the initial value.
func (t *Tester) Run(portfolio Portfolio, scenario domain.StressScenario) (domain.StressTestResult, error) {
	if portfolio.InitialValue <= 0 {
		return domain.StressTestResult{}, fmt.Errorf("initial value must be positive")
	}
	if len(portfolio.Weights) == 0 {
		return domain.StressTestResult{}, fmt.Errorf("no portfolio weights")
	}

	var (
		result domain.StressTestResult
		err    error
	)
	switch scenario.Type {
	case domain.ScenarioHistorical:
		result, err = t.runHistorical(portfolio, scenario)
	case domain.ScenarioMonteCarlo:
		result, err = t.runMonteCarlo(portfolio, scenario)
	case domain.ScenarioHypothetical:
		result, err = t.runHypothetical(portfolio, scenario)
	case domain.ScenarioFactorShock:
		result, err = t.runFactorShock(portfolio, scenario)
	case domain.ScenarioTailRisk:
		result, err = t.runTailRisk(portfolio, scenario)
	default:
		return domain.StressTestResult{}, fmt.Errorf("unknown scenario type %q", scenario.Type)
	}
	if err != nil {
		return domain.StressTestResult{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	result.ScenarioName = scenario.Name
	result.ScenarioType = scenario.Type
	result.VaRImpact = t.varImpact(portfolio, result.LossPercentage)

	t.log.Debug().
		Str("scenario", scenario.Name).
		Str("type", scenario.Type.String()).
		Float64("loss_pct", result.LossPercentage).
		Msg("scenario evaluated")

	return result, nil
}

// RunBatch evaluates every scenario and aggregates the outcomes. Scenarios
// that fail are logged and skipped; the report covers the scenarios that ran.
func (t *Tester) RunBatch(portfolio Portfolio, scenarios []domain.StressScenario) domain.StressReport {
	report := domain.StressReport{}
	for _, scenario := range scenarios {
		result, err := t.Run(portfolio, scenario)
		if err != nil {
			t.log.Warn().Err(err).Str("scenario", scenario.Name).Msg("scenario failed, skipping")
			continue
		}
		report.Results = append(report.Results, result)
	}

	report.ScenarioRuns = len(report.Results)
	if report.ScenarioRuns == 0 {
		return report
	}

	var total float64
	for _, r := range report.Results {
		total += r.LossPercentage
		if r.LossPercentage > report.WorstLoss {
			report.WorstLoss = r.LossPercentage
			report.WorstByName = r.ScenarioName
		}
		if r.LossPercentage > 0.10 {
			report.CountOver10++
		}
		if r.LossPercentage > 0.20 {
			report.CountOver20++
		}
	}
	report.AverageLoss = total / float64(report.ScenarioRuns)
	return report
}

// runHistorical replays a crisis window with today's weights: the window's
// daily asset returns are reweighted and compounded, and in-window drawdown
// and time to recovery are read off the resulting equity curve.
func (t *Tester) runHistorical(portfolio Portfolio, scenario domain.StressScenario) (domain.StressTestResult, error) {
	if scenario.Window == nil {
		return domain.StressTestResult{}, fmt.Errorf("historical scenario requires a date window")
	}

	daily := windowedPortfolioReturns(portfolio, *scenario.Window)
	if len(daily) == 0 {
		return domain.StressTestResult{}, fmt.Errorf("no observations in window [%s, %s)",
			scenario.Window.Start.Format("2006-01-02"), scenario.Window.End.Format("2006-01-02"))
	}

	equity := make([]float64, len(daily))
	value := 1.0
	for i, r := range daily {
		value *= 1 + r
		equity[i] = value
	}

	peak := equity[0]
	peakIdx := 0
	worstDD := 0.0
	troughPeakIdx := 0
	for i, v := range equity {
		if v > peak {
			peak = v
			peakIdx = i
		}
		dd := (v - peak) / peak
		if dd < worstDD {
			worstDD = dd
			troughPeakIdx = peakIdx
		}
	}

	var recoveryDays *int
	if worstDD < 0 {
		prePeak := equity[troughPeakIdx]
		for i := troughPeakIdx + 1; i < len(equity); i++ {
			if equity[i] > prePeak {
				days := i - troughPeakIdx
				recoveryDays = &days
				break
			}
		}
	}

	stressed := portfolio.InitialValue * value
	return domain.StressTestResult{
		InitialValue:   portfolio.InitialValue,
		StressedValue:  stressed,
		LossAmount:     portfolio.InitialValue - stressed,
		LossPercentage: 1 - value,
		Duration:       time.Duration(len(daily)) * 24 * time.Hour,
		RecoveryDays:   recoveryDays,
	}, nil
}

// runMonteCarlo draws multivariate-normal return paths calibrated to the
// historical mean and covariance, compounds each path, and reports the
// confidence-level percentile outcome as the worst case.
func (t *Tester) runMonteCarlo(portfolio Portfolio, scenario domain.StressScenario) (domain.StressTestResult, error) {
	sims := intParam(scenario.Parameters, "num_simulations", t.simulations)
	horizon := intParam(scenario.Parameters, "time_horizon_days", t.horizonDays)
	confidence := floatParam(scenario.Parameters, "confidence_level", defaultConfidence)
	if sims <= 0 || horizon <= 0 {
		return domain.StressTestResult{}, fmt.Errorf("simulations and horizon must be positive")
	}
	if confidence <= 0 || confidence >= 1 {
		return domain.StressTestResult{}, fmt.Errorf("confidence level must be in (0, 1)")
	}

	assets, weights := alignedWeights(portfolio)
	if len(assets) == 0 {
		return domain.StressTestResult{}, fmt.Errorf("no overlap between weights and return history")
	}

	sub := subMatrix(portfolio.Matrix, assets)
	cov, err := optimization.SampleCovariance(sub)
	if err != nil {
		return domain.StressTestResult{}, err
	}

	mu := make([]float64, len(assets))
	for i, asset := range assets {
		mu[i] = formulas.Mean(sub.Column(asset))
	}

	sym := mat.NewSymDense(len(assets), nil)
	for i := range assets {
		for j := range assets {
			sym.SetSym(i, j, cov.Data[i][j])
		}
	}

	src := rand.NewSource(t.seed)
	normal, ok := distmv.NewNormal(mu, sym, rand.New(src))
	if !ok {
		return domain.StressTestResult{}, fmt.Errorf("covariance matrix is not positive definite")
	}

	outcomes := make([]float64, sims)
	draw := make([]float64, len(assets))
	for s := 0; s < sims; s++ {
		value := 1.0
		for d := 0; d < horizon; d++ {
			normal.Rand(draw)
			dayReturn := 0.0
			for i, w := range weights {
				dayReturn += w * draw[i]
			}
			value *= 1 + dayReturn
		}
		outcomes[s] = value - 1
	}

	sort.Float64s(outcomes)
	idx := int(math.Floor((1 - confidence) * float64(sims)))
	if idx >= sims {
		idx = sims - 1
	}
	worst := outcomes[idx]

	stressed := portfolio.InitialValue * (1 + worst)
	return domain.StressTestResult{
		InitialValue:   portfolio.InitialValue,
		StressedValue:  stressed,
		LossAmount:     portfolio.InitialValue - stressed,
		LossPercentage: -worst,
		Duration:       time.Duration(horizon) * 24 * time.Hour,
	}, nil
}

// runHypothetical applies an instantaneous per-asset shock. Assets without a
// shock entry are unmoved.
func (t *Tester) runHypothetical(portfolio Portfolio, scenario domain.StressScenario) (domain.StressTestResult, error) {
	if len(scenario.Shocks) == 0 {
		return domain.StressTestResult{}, fmt.Errorf("hypothetical scenario requires per-asset shocks")
	}
	shock := 0.0
	for asset, w := range portfolio.Weights {
		shock += w * scenario.Shocks[asset]
	}
	return instantResult(portfolio.InitialValue, shock), nil
}

// runFactorShock propagates named macro shocks through per-asset factor
// loadings. Assets without loadings are unmoved.
func (t *Tester) runFactorShock(portfolio Portfolio, scenario domain.StressScenario) (domain.StressTestResult, error) {
	if len(scenario.Factors) == 0 {
		return domain.StressTestResult{}, fmt.Errorf("factor-shock scenario requires factor shocks")
	}
	if len(portfolio.FactorLoadings) == 0 {
		return domain.StressTestResult{}, fmt.Errorf("portfolio has no factor loadings")
	}

	shock := 0.0
	for asset, w := range portfolio.Weights {
		loadings := portfolio.FactorLoadings[asset]
		assetShock := 0.0
		for factor, move := range scenario.Factors {
			assetShock += loadings[factor] * move
		}
		shock += w * assetShock
	}
	return instantResult(portfolio.InitialValue, shock), nil
}

// runTailRisk compounds a low-percentile historical daily return over a
// horizon as a crude sustained-tail approximation.
func (t *Tester) runTailRisk(portfolio Portfolio, scenario domain.StressScenario) (domain.StressTestResult, error) {
	percentile := floatParam(scenario.Parameters, "percentile", 5)
	horizon := intParam(scenario.Parameters, "horizon_days", 5)
	if horizon <= 0 {
		return domain.StressTestResult{}, fmt.Errorf("horizon must be positive")
	}

	daily := fullPortfolioReturns(portfolio)
	if len(daily) < 2 {
		return domain.StressTestResult{}, fmt.Errorf("insufficient history for tail estimate")
	}

	tail := formulas.Percentile(daily, percentile)
	compounded := math.Pow(1+tail, float64(horizon)) - 1

	result := instantResult(portfolio.InitialValue, compounded)
	result.Duration = time.Duration(horizon) * 24 * time.Hour
	return result, nil
}

// varImpact reports how far a scenario loss exceeds the portfolio's everyday
// historical VaR95.
func (t *Tester) varImpact(portfolio Portfolio, lossPct float64) float64 {
	daily := fullPortfolioReturns(portfolio)
	if len(daily) < 2 {
		return 0
	}
	baseline := -formulas.HistoricalVaR(daily, 0.95)
	return lossPct - baseline
}

func instantResult(initial, shock float64) domain.StressTestResult {
	stressed := initial * (1 + shock)
	return domain.StressTestResult{
		InitialValue:   initial,
		StressedValue:  stressed,
		LossAmount:     initial - stressed,
		LossPercentage: -shock,
	}
}

// alignedWeights intersects the weight map with the assets present in the
// return matrix, renormalized, in matrix asset order.
func alignedWeights(portfolio Portfolio) ([]string, []float64) {
	var assets []string
	var weights []float64
	var sum float64
	for _, asset := range portfolio.Matrix.Assets {
		w, ok := portfolio.Weights[asset]
		if !ok {
			continue
		}
		assets = append(assets, asset)
		weights = append(weights, w)
		sum += w
	}
	if sum > 0 {
		for i := range weights {
			weights[i] /= sum
		}
	}
	return assets, weights
}

func subMatrix(matrix domain.ReturnMatrix, assets []string) domain.ReturnMatrix {
	idx := make([]int, 0, len(assets))
	pos := make(map[string]int, len(matrix.Assets))
	for i, a := range matrix.Assets {
		pos[a] = i
	}
	for _, a := range assets {
		idx = append(idx, pos[a])
	}

	rows := make([][]float64, len(matrix.Returns))
	for i, row := range matrix.Returns {
		rows[i] = make([]float64, len(idx))
		for j, k := range idx {
			rows[i][j] = row[k]
		}
	}
	return domain.ReturnMatrix{Assets: assets, Dates: matrix.Dates, Returns: rows}
}

func windowedPortfolioReturns(portfolio Portfolio, window domain.DateWindow) []float64 {
	assets, weights := alignedWeights(portfolio)
	if len(assets) == 0 {
		return nil
	}
	pos := make(map[string]int, len(portfolio.Matrix.Assets))
	for i, a := range portfolio.Matrix.Assets {
		pos[a] = i
	}

	var daily []float64
	for i, date := range portfolio.Matrix.Dates {
		if date.Before(window.Start) || !date.Before(window.End) {
			continue
		}
		r := 0.0
		for j, asset := range assets {
			r += weights[j] * portfolio.Matrix.Returns[i][pos[asset]]
		}
		daily = append(daily, r)
	}
	return daily
}

func fullPortfolioReturns(portfolio Portfolio) []float64 {
	assets, weights := alignedWeights(portfolio)
	if len(assets) == 0 {
		return nil
	}
	pos := make(map[string]int, len(portfolio.Matrix.Assets))
	for i, a := range portfolio.Matrix.Assets {
		pos[a] = i
	}

	daily := make([]float64, len(portfolio.Matrix.Returns))
	for i := range portfolio.Matrix.Returns {
		r := 0.0
		for j, asset := range assets {
			r += weights[j] * portfolio.Matrix.Returns[i][pos[asset]]
		}
		daily[i] = r
	}
	return daily
}

func intParam(params map[string]float64, key string, fallback int) int {
	if v, ok := params[key]; ok {
		return int(v)
	}
	return fallback
}

func floatParam(params map[string]float64, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return fallback
}

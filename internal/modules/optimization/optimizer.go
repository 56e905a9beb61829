// Package optimization selects portfolio weights under several objectives via
// constrained nonlinear minimization, and provides the efficient frontier,
// Black-Litterman blending and an uncertainty-robust variant.
package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/logger"
)

const (
	// penaltyWeight scales the soft-constraint penalties (sum-to-1, targets).
	penaltyWeight = 1000.0

	// maxIterations caps solver work so optimization never blocks
	// indefinitely; hitting the cap reports non-convergence.
	maxIterations = 500
)

// Constraints bounds individual weights. The zero value means long-only full
// investment: every weight in [0, 1], Σw = 1.
type Constraints struct {
	MinWeight float64
	MaxWeight float64
	// Bounds overrides the global min/max per asset.
	Bounds map[string][2]float64
}

func (c Constraints) boundsFor(asset string) (lo, hi float64) {
	lo, hi = c.MinWeight, c.MaxWeight
	if hi == 0 {
		hi = 1
	}
	if b, ok := c.Bounds[asset]; ok {
		lo, hi = b[0], b[1]
	}
	return lo, hi
}

// Options carries per-call optimization parameters.
type Options struct {
	Constraints  Constraints
	TargetReturn *float64 // required for ObjectiveTargetReturn
	TargetRisk   *float64 // required for ObjectiveTargetRisk
}

// Optimizer performs mean-variance style portfolio optimization.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a portfolio optimizer.
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: logger.Component(log, "optimizer")}
}

// Optimize solves the requested objective. Infeasible or non-convergent
// problems come back with Success=false and a diagnostic message; callers
// must check the flag before reading weights.
func (o *Optimizer) Optimize(expectedReturns map[string]float64, cov domain.CovarianceMatrix, objective domain.Objective, opts Options) domain.OptimizationResult {
	if err := cov.Validate(); err != nil {
		return failure(err.Error())
	}

	assets := cov.Assets
	n := len(assets)
	if n == 0 {
		return failure("no assets provided")
	}

	mu := make([]float64, n)
	for i, asset := range assets {
		ret, ok := expectedReturns[asset]
		if !ok {
			return failure(fmt.Sprintf("missing expected return for asset %s", asset))
		}
		mu[i] = ret
	}

	if err := validateTargets(mu, objective, opts); err != nil {
		o.log.Debug().Err(err).Str("objective", objective.String()).Msg("Optimization rejected")
		return failure(err.Error())
	}

	problem := o.buildProblem(mu, cov, assets, objective, opts)

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	settings := &optimize.Settings{MajorIterations: maxIterations}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil || !converged(result) {
		// Retry with a derivative-free method before giving up.
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil {
			return failure(fmt.Sprintf("optimization failed: %v", err))
		}
		if !converged(result) {
			return failure(fmt.Sprintf("optimization did not converge: status=%v", result.Status))
		}
	}

	weights := o.finishWeights(result.X, assets, opts.Constraints)
	if weights == nil {
		return failure("optimization produced a degenerate weight vector")
	}

	return o.describe(weights, mu, cov, assets)
}

// buildProblem assembles the penalty-method objective for the given
// optimization objective. Weight bounds are enforced by projection, the
// sum-to-1 and target constraints as quadratic penalties.
func (o *Optimizer) buildProblem(mu []float64, cov domain.CovarianceMatrix, assets []string, objective domain.Objective, opts Options) optimize.Problem {
	n := len(assets)

	base := func(x []float64) ([]float64, float64, float64) {
		xp := projectToBounds(x, assets, opts.Constraints)
		ret := 0.0
		for i := 0; i < n; i++ {
			ret += mu[i] * xp[i]
		}
		return xp, ret, cov.PortfolioVariance(xp)
	}

	sumPenalty := func(xp []float64) float64 {
		sum := 0.0
		for _, v := range xp {
			sum += v
		}
		return penaltyWeight * (sum - 1) * (sum - 1)
	}

	return optimize.Problem{
		Func: func(x []float64) float64 {
			xp, ret, variance := base(x)

			var obj float64
			switch objective {
			case domain.ObjectiveMaxSharpe:
				obj = -ret / math.Sqrt(math.Max(variance, 1e-10))
			case domain.ObjectiveMinVariance:
				obj = variance
			case domain.ObjectiveMaxReturn:
				obj = -ret
			case domain.ObjectiveRiskParity:
				obj = riskParityObjective(xp, cov)
			case domain.ObjectiveTargetReturn:
				target := *opts.TargetReturn
				obj = variance + penaltyWeight*(ret-target)*(ret-target)
			case domain.ObjectiveTargetRisk:
				target := *opts.TargetRisk
				obj = -ret + penaltyWeight*(variance-target*target)*(variance-target*target)
			}

			return obj + sumPenalty(xp)
		},
	}
}

// riskParityObjective is the approximate equal-risk-contribution heuristic:
// minimize Σ(RC_i - 1/N)² where RC_i = w_i·(Σw)_i / wᵀΣw. Least-squares on
// contributions, not an exact analytic solver.
func riskParityObjective(w []float64, cov domain.CovarianceMatrix) float64 {
	n := len(w)
	variance := cov.PortfolioVariance(w)
	if variance <= 0 {
		return penaltyWeight
	}

	target := 1.0 / float64(n)
	var obj float64
	for i := 0; i < n; i++ {
		marginal := 0.0
		for j := 0; j < n; j++ {
			marginal += cov.Data[i][j] * w[j]
		}
		rc := w[i] * marginal / variance
		obj += (rc - target) * (rc - target)
	}
	return obj
}

// validateTargets rejects target objectives whose target lies outside the
// achievable range under the configured bounds.
func validateTargets(mu []float64, objective domain.Objective, opts Options) error {
	switch objective {
	case domain.ObjectiveTargetReturn:
		if opts.TargetReturn == nil {
			return fmt.Errorf("target_return objective requires a target return")
		}
		lo, hi := achievableReturnRange(mu)
		if *opts.TargetReturn < lo-1e-9 || *opts.TargetReturn > hi+1e-9 {
			return fmt.Errorf("target return %.4f outside achievable range [%.4f, %.4f]", *opts.TargetReturn, lo, hi)
		}
	case domain.ObjectiveTargetRisk:
		if opts.TargetRisk == nil {
			return fmt.Errorf("target_risk objective requires a target volatility")
		}
		if *opts.TargetRisk <= 0 {
			return fmt.Errorf("target volatility must be positive, got %.4f", *opts.TargetRisk)
		}
	}
	return nil
}

// achievableReturnRange bounds wᵀμ over the long-only simplex: the extremes
// are full allocation to the worst and best asset.
func achievableReturnRange(mu []float64) (lo, hi float64) {
	sorted := make([]float64, len(mu))
	copy(sorted, mu)
	sort.Float64s(sorted)
	return sorted[0], sorted[len(sorted)-1]
}

// projectToBounds clips a candidate onto the per-asset weight bounds.
func projectToBounds(x []float64, assets []string, c Constraints) []float64 {
	proj := make([]float64, len(x))
	for i, asset := range assets {
		lo, hi := c.boundsFor(asset)
		proj[i] = math.Max(lo, math.Min(hi, x[i]))
	}
	return proj
}

// finishWeights projects the solver output to bounds, floors negatives and
// normalizes to sum 1. Returns nil when the sum degenerates.
func (o *Optimizer) finishWeights(x []float64, assets []string, c Constraints) domain.PortfolioWeights {
	xp := projectToBounds(x, assets, c)

	sum := 0.0
	for _, v := range xp {
		sum += v
	}
	if sum <= 1e-10 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil
	}

	weights := make(domain.PortfolioWeights, len(assets))
	for i, asset := range assets {
		weights[asset] = math.Max(0, xp[i]/sum)
	}
	if err := weights.Normalize(); err != nil {
		return nil
	}
	return weights
}

// describe computes the reported return/volatility/Sharpe of a weight vector.
func (o *Optimizer) describe(weights domain.PortfolioWeights, mu []float64, cov domain.CovarianceMatrix, assets []string) domain.OptimizationResult {
	w := weights.Vector(assets)

	ret := 0.0
	for i := range assets {
		ret += mu[i] * w[i]
	}
	volatility := math.Sqrt(math.Max(cov.PortfolioVariance(w), 0))

	sharpe := 0.0
	if volatility > 0 {
		sharpe = ret / volatility
	}

	return domain.OptimizationResult{
		Weights:        weights,
		Success:        true,
		Message:        "converged",
		ExpectedReturn: ret,
		Volatility:     volatility,
		SharpeRatio:    sharpe,
	}
}

func converged(result *optimize.Result) bool {
	switch result.Status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence:
		return true
	default:
		return false
	}
}

func failure(message string) domain.OptimizationResult {
	return domain.OptimizationResult{Success: false, Message: message}
}

// covToDense converts an asset-indexed covariance matrix to a gonum Dense.
func covToDense(cov domain.CovarianceMatrix) *mat.Dense {
	n := len(cov.Assets)
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, cov.Data[i][j])
		}
	}
	return dense
}

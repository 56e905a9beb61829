package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/chainfolio/internal/domain"
)

// UncertaintySet identifies the shape of the expected-return uncertainty
// region used by the robust optimizer.
type UncertaintySet int

const (
	// UncertaintyBox penalizes by the worst case over a per-asset interval:
	// an ℓ1 term Σ ε_i·|w_i|.
	UncertaintyBox UncertaintySet = iota
	// UncertaintyEllipsoid penalizes by a quadratic term κ·√(wᵀ diag(ε²) w).
	UncertaintyEllipsoid
)

// RobustOptions configures the uncertainty-robust optimizer.
type RobustOptions struct {
	Constraints Constraints
	Set         UncertaintySet
	// Epsilon is the per-asset expected-return uncertainty radius.
	Epsilon map[string]float64
	// Kappa scales the ellipsoidal penalty. Zero selects 1.
	Kappa float64
	// MaxVolatility bounds portfolio volatility; zero disables the bound.
	MaxVolatility float64
}

// RobustOptimizer maximizes expected return penalized by an estimation
// uncertainty term, protecting the allocation against errors in μ.
type RobustOptimizer struct {
	inner *Optimizer
}

// NewRobustOptimizer wraps an Optimizer.
func NewRobustOptimizer(inner *Optimizer) *RobustOptimizer {
	return &RobustOptimizer{inner: inner}
}

// Optimize solves max wᵀμ − uncertainty(w) subject to the usual weight
// constraints and an optional volatility ceiling. Reports Success=false on
// non-convergence.
func (r *RobustOptimizer) Optimize(expectedReturns map[string]float64, cov domain.CovarianceMatrix, opts RobustOptions) domain.OptimizationResult {
	if err := cov.Validate(); err != nil {
		return failure(err.Error())
	}

	assets := cov.Assets
	n := len(assets)
	if n == 0 {
		return failure("no assets provided")
	}

	mu := make([]float64, n)
	eps := make([]float64, n)
	for i, asset := range assets {
		ret, ok := expectedReturns[asset]
		if !ok {
			return failure(fmt.Sprintf("missing expected return for asset %s", asset))
		}
		mu[i] = ret
		eps[i] = opts.Epsilon[asset]
	}

	kappa := opts.Kappa
	if kappa == 0 {
		kappa = 1
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xp := projectToBounds(x, assets, opts.Constraints)

			ret := 0.0
			sum := 0.0
			for i := 0; i < n; i++ {
				ret += mu[i] * xp[i]
				sum += xp[i]
			}

			var penalty float64
			switch opts.Set {
			case UncertaintyEllipsoid:
				var quad float64
				for i := 0; i < n; i++ {
					quad += eps[i] * eps[i] * xp[i] * xp[i]
				}
				penalty = kappa * math.Sqrt(quad)
			default: // UncertaintyBox
				for i := 0; i < n; i++ {
					penalty += eps[i] * math.Abs(xp[i])
				}
			}

			obj := -(ret - penalty)
			obj += penaltyWeight * (sum - 1) * (sum - 1)

			if opts.MaxVolatility > 0 {
				variance := cov.PortfolioVariance(xp)
				limit := opts.MaxVolatility * opts.MaxVolatility
				if variance > limit {
					obj += penaltyWeight * (variance - limit) * (variance - limit)
				}
			}

			return obj
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}
	settings := &optimize.Settings{MajorIterations: maxIterations}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil || !converged(result) {
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if err != nil {
			return failure(fmt.Sprintf("robust optimization failed: %v", err))
		}
		if !converged(result) {
			return failure(fmt.Sprintf("robust optimization did not converge: status=%v", result.Status))
		}
	}

	weights := r.inner.finishWeights(result.X, assets, opts.Constraints)
	if weights == nil {
		return failure("robust optimization produced a degenerate weight vector")
	}

	return r.inner.describe(weights, mu, cov, assets)
}

package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/chainfolio/internal/domain"
)

// View is one subjective return view: a linear combination of assets expected
// to earn Return, with Uncertainty as the view's variance (Ω diagonal entry).
type View struct {
	Assets      map[string]float64 `json:"assets"` // picking vector row, asset -> loading
	Return      float64            `json:"return"`
	Uncertainty float64            `json:"uncertainty"`
}

// BlackLittermanConfig tunes the Bayesian blend.
type BlackLittermanConfig struct {
	// Delta is the market risk-aversion coefficient used for the implied
	// equilibrium returns. Zero selects the conventional 2.5.
	Delta float64
	// Tau scales the uncertainty of the equilibrium prior. Zero selects 0.05.
	Tau float64
}

func (c BlackLittermanConfig) withDefaults() BlackLittermanConfig {
	if c.Delta == 0 {
		c.Delta = 2.5
	}
	if c.Tau == 0 {
		c.Tau = 0.05
	}
	return c
}

// BlackLitterman blends market-implied equilibrium returns with subjective
// views and converts the posterior into weights. With no views the output is
// the market weights unchanged.
func (o *Optimizer) BlackLitterman(marketWeights domain.PortfolioWeights, cov domain.CovarianceMatrix, views []View, cfg BlackLittermanConfig) domain.OptimizationResult {
	if err := cov.Validate(); err != nil {
		return failure(err.Error())
	}
	cfg = cfg.withDefaults()

	assets := cov.Assets
	n := len(assets)
	if n == 0 {
		return failure("no assets provided")
	}

	wMkt := mat.NewVecDense(n, marketWeights.Vector(assets))
	sigma := covToDense(cov)

	// Implied equilibrium returns: π = δ·Σ·w_market.
	pi := mat.NewVecDense(n, nil)
	pi.MulVec(sigma, wMkt)
	pi.ScaleVec(cfg.Delta, pi)

	if len(views) == 0 {
		out := marketWeights.Clone()
		if err := out.Normalize(); err != nil {
			return failure(fmt.Sprintf("invalid market weights: %v", err))
		}
		mu := make([]float64, n)
		for i := 0; i < n; i++ {
			mu[i] = pi.AtVec(i)
		}
		return o.describe(out, mu, cov, assets)
	}

	k := len(views)
	p := mat.NewDense(k, n, nil)
	q := mat.NewVecDense(k, nil)
	omegaInv := mat.NewDense(k, k, nil)
	for vi, view := range views {
		if view.Uncertainty <= 0 {
			return failure(fmt.Sprintf("view %d has non-positive uncertainty", vi))
		}
		for j, asset := range assets {
			if loading, ok := view.Assets[asset]; ok {
				p.Set(vi, j, loading)
			}
		}
		q.SetVec(vi, view.Return)
		omegaInv.Set(vi, vi, 1/view.Uncertainty)
	}

	// (τΣ)⁻¹
	tauSigma := mat.NewDense(n, n, nil)
	tauSigma.Scale(cfg.Tau, sigma)
	var tauSigmaInv mat.Dense
	if err := tauSigmaInv.Inverse(tauSigma); err != nil {
		return failure(fmt.Sprintf("covariance matrix is singular: %v", err))
	}

	// A = (τΣ)⁻¹ + PᵀΩ⁻¹P
	var ptOmegaInv mat.Dense
	ptOmegaInv.Mul(p.T(), omegaInv)
	var ptOmegaInvP mat.Dense
	ptOmegaInvP.Mul(&ptOmegaInv, p)
	var a mat.Dense
	a.Add(&tauSigmaInv, &ptOmegaInvP)

	var aInv mat.Dense
	if err := aInv.Inverse(&a); err != nil {
		return failure(fmt.Sprintf("posterior precision matrix is singular: %v", err))
	}

	// b = (τΣ)⁻¹π + PᵀΩ⁻¹Q
	var priorTerm mat.VecDense
	priorTerm.MulVec(&tauSigmaInv, pi)
	var viewTerm mat.VecDense
	viewTerm.MulVec(&ptOmegaInv, q)
	var b mat.VecDense
	b.AddVec(&priorTerm, &viewTerm)

	var muPost mat.VecDense
	muPost.MulVec(&aInv, &b)

	// Σ_posterior = Σ + A⁻¹; unconstrained weights ∝ (δ·Σ_posterior)⁻¹·μ.
	var sigmaPost mat.Dense
	sigmaPost.Add(sigma, &aInv)
	sigmaPost.Scale(cfg.Delta, &sigmaPost)
	var sigmaPostInv mat.Dense
	if err := sigmaPostInv.Inverse(&sigmaPost); err != nil {
		return failure(fmt.Sprintf("posterior covariance is singular: %v", err))
	}

	var raw mat.VecDense
	raw.MulVec(&sigmaPostInv, &muPost)

	weights := make(domain.PortfolioWeights, n)
	sum := 0.0
	for i, asset := range assets {
		w := raw.AtVec(i)
		weights[asset] = w
		sum += w
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return failure("posterior weights are degenerate")
	}
	for asset := range weights {
		weights[asset] /= sum
	}

	mu := make([]float64, n)
	for i := 0; i < n; i++ {
		mu[i] = muPost.AtVec(i)
	}
	return o.describe(weights, mu, cov, assets)
}

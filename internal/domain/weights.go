package domain

import (
	"fmt"
	"math"
	"sort"
)

// PortfolioWeights maps asset identifiers to portfolio fractions. Weights are
// expected to be non-negative and to sum to approximately 1 after Normalize.
type PortfolioWeights map[string]float64

// Normalize scales weights so they sum to 1. Returns an error when the weight
// sum is zero, negative or not finite.
func (w PortfolioWeights) Normalize() error {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("invalid weight sum: %v", sum)
	}
	for k := range w {
		w[k] /= sum
	}
	return nil
}

// Sum returns the sum of all weights.
func (w PortfolioWeights) Sum() float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum
}

// Assets returns the asset identifiers in deterministic sorted order.
func (w PortfolioWeights) Assets() []string {
	assets := make([]string, 0, len(w))
	for k := range w {
		assets = append(assets, k)
	}
	sort.Strings(assets)
	return assets
}

// Vector returns the weights ordered by the given asset list. Missing assets
// get zero weight.
func (w PortfolioWeights) Vector(assets []string) []float64 {
	vec := make([]float64, len(assets))
	for i, a := range assets {
		vec[i] = w[a]
	}
	return vec
}

// Clone returns a copy of the weights map.
func (w PortfolioWeights) Clone() PortfolioWeights {
	out := make(PortfolioWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// EqualWeights builds a uniform 1/N weight map over the given assets.
func EqualWeights(assets []string) PortfolioWeights {
	w := make(PortfolioWeights, len(assets))
	if len(assets) == 0 {
		return w
	}
	share := 1.0 / float64(len(assets))
	for _, a := range assets {
		w[a] = share
	}
	return w
}

// CovarianceMatrix is a symmetric asset-indexed covariance matrix. Data rows
// and columns follow the Assets ordering; callers pairing it with expected
// return vectors or weight vectors must use the same ordering.
type CovarianceMatrix struct {
	Assets []string    `json:"assets"`
	Data   [][]float64 `json:"data"`
}

// Validate checks squareness and alignment with the asset list.
func (c CovarianceMatrix) Validate() error {
	n := len(c.Assets)
	if len(c.Data) != n {
		return fmt.Errorf("covariance matrix size %d does not match asset count %d", len(c.Data), n)
	}
	for i := range c.Data {
		if len(c.Data[i]) != n {
			return fmt.Errorf("covariance matrix row %d has size %d, expected %d", i, len(c.Data[i]), n)
		}
	}
	return nil
}

// At returns the covariance between two assets by index.
func (c CovarianceMatrix) At(i, j int) float64 { return c.Data[i][j] }

// PortfolioVariance computes wᵀΣw for a weight vector aligned to Assets.
func (c CovarianceMatrix) PortfolioVariance(weights []float64) float64 {
	var variance float64
	for i := range weights {
		for j := range weights {
			variance += weights[i] * weights[j] * c.Data[i][j]
		}
	}
	return variance
}

// IntersectWeights aligns a weight map with a return matrix by index
// intersection: assets present in both are kept, weights renormalized. An
// empty intersection yields empty outputs, which callers treat as the defined
// empty result.
func IntersectWeights(weights PortfolioWeights, matrix ReturnMatrix) ([]string, []float64) {
	present := make(map[string]bool, len(matrix.Assets))
	for _, a := range matrix.Assets {
		present[a] = true
	}

	assets := make([]string, 0, len(weights))
	for _, a := range weights.Assets() {
		if present[a] {
			assets = append(assets, a)
		}
	}

	vec := make([]float64, len(assets))
	sum := 0.0
	for i, a := range assets {
		vec[i] = weights[a]
		sum += weights[a]
	}
	if sum > 0 {
		for i := range vec {
			vec[i] /= sum
		}
	}

	return assets, vec
}

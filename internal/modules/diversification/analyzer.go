// Package diversification computes correlation, concentration and
// risk-contribution metrics for a weighted portfolio.
package diversification

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/formulas"
	"github.com/aristath/chainfolio/pkg/logger"
)

// topK is the number of largest positions summed for the top-k concentration
// measure.
const topK = 3

// Analyzer computes diversification metrics. Pure and concurrency-safe.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates a diversification analyzer.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{log: logger.Component(log, "diversification")}
}

// Analyze computes the full diversification metric set. Weights and the
// return matrix are aligned by index intersection; an empty intersection
// yields the zero-valued empty result. Sector metadata is optional.
func (a *Analyzer) Analyze(matrix domain.ReturnMatrix, weights domain.PortfolioWeights, sectors map[string]string) domain.DiversificationMetrics {
	assets, w := domain.IntersectWeights(weights, matrix)
	if len(assets) == 0 {
		a.log.Debug().Msg("Empty weight/return intersection, returning empty result")
		return domain.DiversificationMetrics{}
	}

	columns := make([][]float64, len(assets))
	for i, asset := range assets {
		columns[i] = matrix.Column(asset)
	}

	corr := correlationMatrix(columns)

	metrics := domain.DiversificationMetrics{
		CorrelationMatrix:      corr,
		CorrelationAssetsOrder: assets,
		ClusterCount:           clusterCount(corr),
	}

	a.correlationStats(&metrics, corr, w, columns)
	concentrationStats(&metrics, w)
	a.riskStats(&metrics, assets, w, columns)

	if len(sectors) > 0 {
		metrics.Sector = sectorRollup(assets, w, sectors)
	}

	metrics.DiversificationScore = score(metrics, len(assets))

	return metrics
}

// correlationStats fills the pairwise-correlation block, including the
// correlation of the weighted portfolio against an equal-weight benchmark over
// the same assets.
func (a *Analyzer) correlationStats(m *domain.DiversificationMetrics, corr [][]float64, w []float64, columns [][]float64) {
	n := len(corr)
	if n < 2 {
		// A single asset is treated as perfectly self-correlated so the score
		// bottoms out instead of rewarding a one-asset book.
		m.AvgCorrelation = 1
		m.WeightedCorrelation = 1
		m.MinCorrelation = 1
		m.MaxCorrelation = 1
		m.BenchmarkCorrelation = 1
		return
	}

	var sum, weightedSum, weightTotal float64
	minC, maxC := math.Inf(1), math.Inf(-1)
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := corr[i][j]
			sum += c
			pairs++
			weightedSum += w[i] * w[j] * c
			weightTotal += w[i] * w[j]
			if c < minC {
				minC = c
			}
			if c > maxC {
				maxC = c
			}
		}
	}

	m.AvgCorrelation = sum / float64(pairs)
	if weightTotal > 0 {
		m.WeightedCorrelation = weightedSum / weightTotal
	}
	m.MinCorrelation = minC
	m.MaxCorrelation = maxC

	// Portfolio vs equal-weight benchmark over the same assets.
	obs := len(columns[0])
	portfolio := make([]float64, obs)
	equal := make([]float64, obs)
	for t := 0; t < obs; t++ {
		for i := range columns {
			portfolio[t] += w[i] * columns[i][t]
			equal[t] += columns[i][t] / float64(n)
		}
	}
	m.BenchmarkCorrelation = formulas.Correlation(portfolio, equal)
}

// concentrationStats fills HHI, effective-N, top-k, Gini and entropy.
func concentrationStats(m *domain.DiversificationMetrics, w []float64) {
	var hhi float64
	for _, v := range w {
		hhi += v * v
	}
	m.HHI = hhi
	if hhi > 0 {
		m.EffectiveN = 1 / hhi
	}

	sorted := make([]float64, len(w))
	copy(sorted, w)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	k := topK
	if k > len(sorted) {
		k = len(sorted)
	}
	for _, v := range sorted[:k] {
		m.TopKConcentration += v
	}

	m.Gini = gini(w)

	for _, v := range w {
		if v > 0 {
			m.ShannonEntropy -= v * math.Log(v)
		}
	}
}

// riskStats fills the diversification ratio and per-asset risk contributions.
// Zero-variance assets contribute zero volatility to the numerator and their
// risk contribution falls out of the covariance term; the degenerate
// zero-portfolio-variance case falls back to the weights themselves so
// contributions still sum to 1.
func (a *Analyzer) riskStats(m *domain.DiversificationMetrics, assets []string, w []float64, columns [][]float64) {
	n := len(assets)

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
		for j := range cov[i] {
			cov[i][j] = formulas.Covariance(columns[i], columns[j])
		}
	}

	var weightedVol float64
	for i := range w {
		weightedVol += w[i] * math.Sqrt(math.Max(cov[i][i], 0))
	}

	var variance float64
	marginal := make([]float64, n) // (Σw)_i
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			marginal[i] += cov[i][j] * w[j]
		}
		variance += w[i] * marginal[i]
	}

	m.RiskContributions = make(map[string]float64, n)
	if variance > 0 {
		m.DiversificationRatio = weightedVol / math.Sqrt(variance)
		for i, asset := range assets {
			m.RiskContributions[asset] = w[i] * marginal[i] / variance
		}
	} else {
		a.log.Debug().Msg("Zero portfolio variance, risk contributions fall back to weights")
		m.DiversificationRatio = 1
		for i, asset := range assets {
			m.RiskContributions[asset] = w[i]
		}
	}
}

// sectorRollup re-applies HHI/effective-N to sector-aggregated weights.
// Assets without metadata land in an "unclassified" bucket.
func sectorRollup(assets []string, w []float64, sectors map[string]string) *domain.SectorConcentration {
	rollup := make(map[string]float64)
	for i, asset := range assets {
		sector, ok := sectors[asset]
		if !ok {
			sector = "unclassified"
		}
		rollup[sector] += w[i]
	}

	var hhi float64
	for _, v := range rollup {
		hhi += v * v
	}

	out := &domain.SectorConcentration{Weights: rollup, HHI: hhi}
	if hhi > 0 {
		out.EffectiveN = 1 / hhi
	}
	return out
}

// score maps the metric set onto a 0-100 diversification score:
// 30% inverse average correlation, 30% HHI position between its achievable
// extremes, 20% diversification-ratio excess over 1 (capped at 1), 20% asset
// count saturating at 20.
func score(m domain.DiversificationMetrics, n int) float64 {
	corrTerm := 1 - m.AvgCorrelation
	if corrTerm < 0 {
		corrTerm = 0
	}

	hhiTerm := 0.0
	if n > 1 {
		minHHI := 1.0 / float64(n)
		hhiTerm = (1 - m.HHI) / (1 - minHHI)
		hhiTerm = math.Max(0, math.Min(1, hhiTerm))
	}

	drTerm := math.Max(0, math.Min(1, m.DiversificationRatio-1))

	countTerm := math.Min(1, float64(n)/20)

	return 100 * (0.30*corrTerm + 0.30*hhiTerm + 0.20*drTerm + 0.20*countTerm)
}

// correlationMatrix builds a Pearson correlation matrix; zero-variance columns
// correlate at 0 with everything (and 1 with themselves).
func correlationMatrix(columns [][]float64) [][]float64 {
	n := len(columns)
	corr := make([][]float64, n)
	for i := range corr {
		corr[i] = make([]float64, n)
		corr[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := 0.0
			if formulas.StdDev(columns[i]) > 0 && formulas.StdDev(columns[j]) > 0 {
				c = formulas.Correlation(columns[i], columns[j])
			}
			corr[i][j] = c
			corr[j][i] = c
		}
	}
	return corr
}

// gini computes the Gini coefficient of a weight vector.
func gini(w []float64) float64 {
	n := len(w)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, w)
	sort.Float64s(sorted)

	var cumulative, total float64
	for i, v := range sorted {
		cumulative += v * float64(2*(i+1)-n-1)
		total += v
	}
	if total == 0 {
		return 0
	}
	return cumulative / (float64(n) * total)
}

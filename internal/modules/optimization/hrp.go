package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/chainfolio/internal/domain"
)

// HRPOptimizer allocates weights via Hierarchical Risk Parity:
// correlation distances, single-linkage clustering, quasi-diagonal
// ordering and recursive bisection with inverse-variance cluster weights.
// It needs no expected returns and never inverts the covariance matrix.
type HRPOptimizer struct{}

func NewHRPOptimizer() *HRPOptimizer {
	return &HRPOptimizer{}
}

type hrpNode struct {
	left    *hrpNode
	right   *hrpNode
	leaves  []int
	minLeaf int
}

// Optimize computes HRP weights from a covariance matrix. Weights are
// long-only and sum to 1.
func (hrp *HRPOptimizer) Optimize(cov domain.CovarianceMatrix) (domain.PortfolioWeights, error) {
	n := len(cov.Assets)
	if n == 0 {
		return nil, fmt.Errorf("no assets provided")
	}
	if n == 1 {
		return domain.PortfolioWeights{cov.Assets[0]: 1.0}, nil
	}
	if err := cov.Validate(); err != nil {
		return nil, err
	}

	dist := distanceMatrix(cov.Data)
	root := buildDendrogram(dist)
	order := quasiDiagonalOrder(root)
	if len(order) != n {
		return nil, fmt.Errorf("invalid cluster order length %d", len(order))
	}

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}
	recursiveBisection(weights, cov.Data, order)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("invalid weight sum: %v", sum)
	}

	result := make(domain.PortfolioWeights, n)
	for i, asset := range cov.Assets {
		result[asset] = weights[i] / sum
	}
	return result, nil
}

// distanceMatrix converts covariance to correlation and then to the
// clustering distance d_ij = sqrt(2 * (1 - rho_ij)).
func distanceMatrix(cov [][]float64) [][]float64 {
	n := len(cov)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			denom := math.Sqrt(cov[i][i] * cov[j][j])
			rho := 0.0
			if denom > 0 {
				rho = cov[i][j] / denom
			}
			rho = math.Max(-1, math.Min(1, rho))
			dist[i][j] = math.Sqrt(2 * (1 - rho))
		}
	}
	return dist
}

// buildDendrogram runs agglomerative single-linkage clustering with a
// deterministic tie-break on the smallest member index of each pair.
func buildDendrogram(dist [][]float64) *hrpNode {
	n := len(dist)
	clusters := make([]*hrpNode, 0, n)
	for i := 0; i < n; i++ {
		clusters = append(clusters, &hrpNode{leaves: []int{i}, minLeaf: i})
	}

	for len(clusters) > 1 {
		bestI, bestJ := 0, 1
		bestD := singleLinkage(dist, clusters[0], clusters[1])
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := singleLinkage(dist, clusters[i], clusters[j])
				if d < bestD || (d == bestD && pairLess(clusters[i], clusters[j], clusters[bestI], clusters[bestJ])) {
					bestD = d
					bestI = i
					bestJ = j
				}
			}
		}

		left, right := clusters[bestI], clusters[bestJ]
		if right.minLeaf < left.minLeaf {
			left, right = right, left
		}
		merged := &hrpNode{
			left:    left,
			right:   right,
			leaves:  append(append([]int{}, left.leaves...), right.leaves...),
			minLeaf: left.minLeaf,
		}

		next := make([]*hrpNode, 0, len(clusters)-1)
		for k := range clusters {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, clusters[k])
		}
		clusters = append(next, merged)
	}

	return clusters[0]
}

func singleLinkage(dist [][]float64, a, b *hrpNode) float64 {
	best := math.Inf(1)
	for _, i := range a.leaves {
		for _, j := range b.leaves {
			if dist[i][j] < best {
				best = dist[i][j]
			}
		}
	}
	return best
}

func pairLess(a1, b1, a2, b2 *hrpNode) bool {
	x1, y1 := a1.minLeaf, b1.minLeaf
	if y1 < x1 {
		x1, y1 = y1, x1
	}
	x2, y2 := a2.minLeaf, b2.minLeaf
	if y2 < x2 {
		x2, y2 = y2, x2
	}
	if x1 != x2 {
		return x1 < x2
	}
	return y1 < y2
}

func quasiDiagonalOrder(node *hrpNode) []int {
	if node == nil {
		return nil
	}
	if node.left == nil && node.right == nil {
		return []int{node.leaves[0]}
	}
	return append(quasiDiagonalOrder(node.left), quasiDiagonalOrder(node.right)...)
}

func recursiveBisection(weights []float64, cov [][]float64, order []int) {
	if len(order) <= 1 {
		return
	}
	split := len(order) / 2
	left, right := order[:split], order[split:]

	vLeft := clusterVariance(cov, left)
	vRight := clusterVariance(cov, right)

	alpha := 0.5
	if vLeft+vRight > 0 {
		alpha = 1.0 - vLeft/(vLeft+vRight)
	}
	alpha = math.Max(0, math.Min(1, alpha))

	for _, idx := range left {
		weights[idx] *= alpha
	}
	for _, idx := range right {
		weights[idx] *= 1.0 - alpha
	}

	recursiveBisection(weights, cov, left)
	recursiveBisection(weights, cov, right)
}

// clusterVariance is the variance of the inverse-variance portfolio
// restricted to the cluster members.
func clusterVariance(cov [][]float64, idxs []int) float64 {
	if len(idxs) == 0 {
		return 0
	}
	if len(idxs) == 1 {
		return math.Max(cov[idxs[0]][idxs[0]], 0)
	}

	const eps = 1e-12
	inv := make([]float64, len(idxs))
	sumInv := 0.0
	for k, i := range idxs {
		v := math.Max(cov[i][i], eps)
		inv[k] = 1.0 / v
		sumInv += inv[k]
	}
	if sumInv <= 0 {
		return 0
	}
	for k := range inv {
		inv[k] /= sumInv
	}

	variance := 0.0
	for a, i := range idxs {
		for b, j := range idxs {
			variance += inv[a] * cov[i][j] * inv[b]
		}
	}
	return math.Max(variance, 0)
}

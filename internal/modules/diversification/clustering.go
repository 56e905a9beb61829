package diversification

import "math"

// maxClusters caps the reported cluster count. Fixed heuristic, not an elbow
// search.
const maxClusters = 5

// clusterCount runs agglomerative clustering (average linkage) on the
// distance matrix d_ij = 1 - |ρ_ij| and merges until min(maxClusters, N)
// clusters remain, then keeps collapsing clusters at effectively zero
// distance. Deterministic tie-break on the smallest member index.
func clusterCount(corr [][]float64) int {
	n := len(corr)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i != j {
				dist[i][j] = 1 - math.Abs(corr[i][j])
			}
		}
	}

	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	target := maxClusters
	if n < target {
		target = n
	}

	for len(clusters) > 1 {
		bestI, bestJ := 0, 1
		bestD := linkageDistance(dist, clusters[0], clusters[1])
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := linkageDistance(dist, clusters[i], clusters[j])
				if d < bestD || (d == bestD && clusters[i][0] < clusters[bestI][0]) {
					bestD = d
					bestI, bestJ = i, j
				}
			}
		}

		// Above the target count always merge; at or below it only collapse
		// clusters that are effectively identical.
		if len(clusters) <= target && bestD > 1e-9 {
			break
		}

		merged := append(append([]int{}, clusters[bestI]...), clusters[bestJ]...)
		next := make([][]int, 0, len(clusters)-1)
		for k := range clusters {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, clusters[k])
		}
		clusters = append(next, merged)
	}

	return len(clusters)
}

// linkageDistance is the average pairwise distance between two clusters.
func linkageDistance(dist [][]float64, a, b []int) float64 {
	sum := 0.0
	count := 0
	for _, i := range a {
		for _, j := range b {
			sum += dist[i][j]
			count++
		}
	}
	if count == 0 {
		return math.Inf(1)
	}
	return sum / float64(count)
}

package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/formulas"
)

// SampleCovariance builds the sample covariance matrix of a return matrix.
// Requires at least 2 aligned observations.
func SampleCovariance(matrix domain.ReturnMatrix) (domain.CovarianceMatrix, error) {
	n := len(matrix.Assets)
	if n == 0 {
		return domain.CovarianceMatrix{}, fmt.Errorf("no assets provided")
	}
	obs := matrix.NumObservations()
	if obs < 2 {
		return domain.CovarianceMatrix{}, fmt.Errorf("insufficient data: need at least 2 observations, got %d", obs)
	}

	columns := make([][]float64, n)
	for j := 0; j < n; j++ {
		columns[j] = make([]float64, obs)
		for i := 0; i < obs; i++ {
			columns[j][i] = matrix.Returns[i][j]
		}
	}

	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(columns[i], columns[j], nil)
			data[i][j] = cov
			data[j][i] = cov
		}
	}

	return domain.CovarianceMatrix{Assets: matrix.Assets, Data: data}, nil
}

// LedoitWolfShrinkage shrinks a sample covariance matrix towards a constant
// correlation target to improve conditioning with limited data.
//
// Reference: Ledoit & Wolf (2004), "A well-conditioned estimator for
// large-dimensional covariance matrices". The shrinkage intensity here is a
// simplified estimate capped at 0.5.
func LedoitWolfShrinkage(cov domain.CovarianceMatrix) (domain.CovarianceMatrix, error) {
	n := len(cov.Assets)
	if n == 0 {
		return domain.CovarianceMatrix{}, fmt.Errorf("empty covariance matrix")
	}
	if err := cov.Validate(); err != nil {
		return domain.CovarianceMatrix{}, err
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += cov.Data[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += cov.Data[i][j]
			}
		}
	}
	avgVar /= float64(n)
	if n > 1 {
		avgCov /= float64(n * (n - 1))
	}

	target := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		if avgVar > 0 {
			return avgCov
		}
		return 0
	}

	shrinkage := 0.2
	if n > 2 && avgVar > 0 {
		var sumSqDiff, sumSq, sum float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := cov.Data[i][j] - target(i, j)
				sumSqDiff += diff * diff
				sum += cov.Data[i][j]
				sumSq += cov.Data[i][j] * cov.Data[i][j]
			}
		}
		count := float64(n * n)
		meanSqDiff := sumSqDiff / count
		mean := sum / count
		varSample := sumSq/count - mean*mean
		if varSample > 0 && meanSqDiff > 0 {
			shrinkage = math.Min(0.5, math.Max(0, varSample/(varSample+meanSqDiff)))
		}
	}

	shrunk := make([][]float64, n)
	for i := range shrunk {
		shrunk[i] = make([]float64, n)
		for j := range shrunk[i] {
			shrunk[i][j] = (1-shrinkage)*cov.Data[i][j] + shrinkage*target(i, j)
		}
	}

	return domain.CovarianceMatrix{Assets: cov.Assets, Data: shrunk}, nil
}

// AnnualizedStatistics derives annualized expected returns (×252) and an
// annualized covariance matrix from a daily return matrix, optionally with
// Ledoit-Wolf shrinkage. This is the input preparation step every optimization
// entry point shares.
func AnnualizedStatistics(matrix domain.ReturnMatrix, shrink bool) (map[string]float64, domain.CovarianceMatrix, error) {
	cov, err := SampleCovariance(matrix)
	if err != nil {
		return nil, domain.CovarianceMatrix{}, err
	}
	if shrink {
		cov, err = LedoitWolfShrinkage(cov)
		if err != nil {
			return nil, domain.CovarianceMatrix{}, err
		}
	}

	for i := range cov.Data {
		for j := range cov.Data[i] {
			cov.Data[i][j] *= formulas.TradingDaysPerYear
		}
	}

	mu := make(map[string]float64, len(matrix.Assets))
	for _, asset := range matrix.Assets {
		mu[asset] = formulas.Mean(matrix.Column(asset)) * formulas.TradingDaysPerYear
	}

	return mu, cov, nil
}

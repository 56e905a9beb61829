package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewReturnSeriesSortsByDate(t *testing.T) {
	series, err := NewReturnSeries(
		[]time.Time{day(2), day(0), day(1)},
		[]float64{0.03, 0.01, 0.02},
	)

	require.NoError(t, err)
	assert.Equal(t, []float64{0.01, 0.02, 0.03}, series.Values())
	assert.True(t, series.Dates()[0].Before(series.Dates()[1]))
}

func TestNewReturnSeriesRejectsDuplicates(t *testing.T) {
	_, err := NewReturnSeries([]time.Time{day(0), day(0)}, []float64{0.01, 0.02})
	assert.Error(t, err)
}

func TestReturnSeriesBefore(t *testing.T) {
	series, err := NewReturnSeries(
		[]time.Time{day(0), day(1), day(2), day(3)},
		[]float64{0.01, 0.02, 0.03, 0.04},
	)
	require.NoError(t, err)

	head := series.Before(day(2))
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, []float64{0.01, 0.02}, head.Values())
}

func TestReturnMatrixColumn(t *testing.T) {
	matrix := ReturnMatrix{
		Assets:  []string{"AAA", "BBB"},
		Dates:   []time.Time{day(0), day(1)},
		Returns: [][]float64{{0.01, 0.05}, {0.02, 0.06}},
	}

	assert.Equal(t, []float64{0.05, 0.06}, matrix.Column("BBB"))
	assert.Nil(t, matrix.Column("missing"))
	assert.Equal(t, 2, matrix.NumObservations())
}

func TestNormalize(t *testing.T) {
	w := PortfolioWeights{"AAA": 2, "BBB": 2}
	require.NoError(t, w.Normalize())
	assert.InDelta(t, 0.5, w["AAA"], 1e-12)
	assert.InDelta(t, 1.0, w.Sum(), 1e-12)

	assert.Error(t, PortfolioWeights{"AAA": 0}.Normalize())
	assert.Error(t, PortfolioWeights{"AAA": -1, "BBB": 0.5}.Normalize())
}

func TestEqualWeights(t *testing.T) {
	w := EqualWeights([]string{"AAA", "BBB", "CCC", "DDD"})
	assert.Len(t, w, 4)
	for _, v := range w {
		assert.InDelta(t, 0.25, v, 1e-12)
	}
	assert.Empty(t, EqualWeights(nil))
}

func TestWeightsVectorAndClone(t *testing.T) {
	w := PortfolioWeights{"AAA": 0.3, "BBB": 0.7}

	assert.Equal(t, []float64{0.7, 0.3}, w.Vector([]string{"BBB", "AAA"}))
	assert.Equal(t, []string{"AAA", "BBB"}, w.Assets())

	clone := w.Clone()
	clone["AAA"] = 0.9
	assert.InDelta(t, 0.3, w["AAA"], 1e-12)
}

func TestCovarianceMatrixValidate(t *testing.T) {
	valid := CovarianceMatrix{
		Assets: []string{"AAA", "BBB"},
		Data:   [][]float64{{0.04, 0.01}, {0.01, 0.09}},
	}
	assert.NoError(t, valid.Validate())

	asym := CovarianceMatrix{
		Assets: []string{"AAA", "BBB"},
		Data:   [][]float64{{0.04, 0.01}, {0.02, 0.09}},
	}
	assert.Error(t, asym.Validate())

	ragged := CovarianceMatrix{
		Assets: []string{"AAA", "BBB"},
		Data:   [][]float64{{0.04}},
	}
	assert.Error(t, ragged.Validate())
}

func TestPortfolioVariance(t *testing.T) {
	cov := CovarianceMatrix{
		Assets: []string{"AAA", "BBB"},
		Data:   [][]float64{{0.04, 0.0}, {0.0, 0.09}},
	}
	v := cov.PortfolioVariance([]float64{0.5, 0.5})
	assert.InDelta(t, 0.25*0.04+0.25*0.09, v, 1e-12)
}

func TestIntersectWeights(t *testing.T) {
	matrix := ReturnMatrix{
		Assets:  []string{"AAA", "BBB", "CCC"},
		Dates:   []time.Time{day(0)},
		Returns: [][]float64{{0.01, 0.02, 0.03}},
	}
	weights := PortfolioWeights{"AAA": 0.5, "CCC": 0.5, "ZZZ": 1.0}

	assets, w := IntersectWeights(weights, matrix)

	assert.Equal(t, []string{"AAA", "CCC"}, assets)
	require.Len(t, w, 2)
	assert.InDelta(t, 0.5, w[0], 1e-12)
	assert.InDelta(t, 0.5, w[1], 1e-12)
}

func TestEnumRoundTrips(t *testing.T) {
	for _, o := range []Objective{ObjectiveMaxSharpe, ObjectiveMinVariance, ObjectiveMaxReturn, ObjectiveRiskParity, ObjectiveTargetReturn, ObjectiveTargetRisk} {
		parsed, err := ParseObjective(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}
	_, err := ParseObjective("bogus")
	assert.Error(t, err)

	for _, f := range []RebalanceFrequency{RebalanceDaily, RebalanceWeekly, RebalanceMonthly, RebalanceQuarterly, RebalanceAnnually, RebalanceNever} {
		parsed, err := ParseRebalanceFrequency(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	assert.Equal(t, "PERFORMANCE_ALERT", AlertPerformance.String())
	assert.Equal(t, "monte_carlo", ScenarioMonteCarlo.String())
}

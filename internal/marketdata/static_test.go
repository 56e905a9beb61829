package marketdata

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradingDays(n int) []time.Time {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

func TestAssetReturnsFromPrices(t *testing.T) {
	dates := tradingDays(4)
	provider, err := NewStaticProvider(dates, map[string][]float64{
		"BTC": {100, 110, 99, 108.9},
	})
	require.NoError(t, err)

	matrix, err := provider.AssetReturns(context.Background(), []string{"BTC"}, dates[0], dates[3].AddDate(0, 0, 1))

	require.NoError(t, err)
	require.Equal(t, 3, matrix.NumObservations())
	assert.InDelta(t, 0.10, matrix.Returns[0][0], 1e-12)
	assert.InDelta(t, -0.10, matrix.Returns[1][0], 1e-12)
	assert.InDelta(t, 0.10, matrix.Returns[2][0], 1e-12)
}

func TestAssetReturnsWindowRestriction(t *testing.T) {
	dates := tradingDays(10)
	series := make([]float64, 10)
	for i := range series {
		series[i] = 100 + float64(i)
	}
	provider, err := NewStaticProvider(dates, map[string][]float64{"ETH": series})
	require.NoError(t, err)

	matrix, err := provider.AssetReturns(context.Background(), []string{"ETH"}, dates[3], dates[7])

	require.NoError(t, err)
	// 4 dates inside [dates[3], dates[7]) give 3 returns.
	assert.Equal(t, 3, matrix.NumObservations())
	assert.Equal(t, dates[4], matrix.Dates[0])
}

func TestMissingPricesAreFilled(t *testing.T) {
	dates := tradingDays(5)
	provider, err := NewStaticProvider(dates, map[string][]float64{
		"SOL": {math.NaN(), 50, math.NaN(), math.NaN(), 55},
	})
	require.NoError(t, err)

	prices := provider.PricesFor("SOL")
	assert.Equal(t, []float64{50, 50, 50, 50, 55}, prices)
}

func TestLatestPrices(t *testing.T) {
	dates := tradingDays(2)
	provider, err := NewStaticProvider(dates, map[string][]float64{
		"BTC": {100, 101},
	})
	require.NoError(t, err)
	provider.SetLatestPrice("ETH", 3000)

	latest, err := provider.LatestPrices(context.Background(), []string{"BTC", "ETH", "MISSING"})

	require.NoError(t, err)
	assert.InDelta(t, 101, latest["BTC"], 1e-12)
	assert.InDelta(t, 3000, latest["ETH"], 1e-12)
	_, ok := latest["MISSING"]
	assert.False(t, ok)
}

func TestBenchmarkReturns(t *testing.T) {
	dates := tradingDays(4)
	provider, err := NewStaticProvider(dates, map[string][]float64{
		"SPY": {400, 404, 400, 410},
	})
	require.NoError(t, err)

	series, err := provider.BenchmarkReturns(context.Background(), "SPY", dates[0], dates[3].AddDate(0, 0, 1))

	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
	assert.InDelta(t, 0.01, series.Values()[0], 1e-12)
}

func TestMismatchedSeriesLength(t *testing.T) {
	_, err := NewStaticProvider(tradingDays(3), map[string][]float64{"BTC": {100, 101}})
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	dates := tradingDays(3)
	provider, err := NewStaticProvider(dates, map[string][]float64{"BTC": {1, 2, 3}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = provider.AssetReturns(ctx, []string{"BTC"}, dates[0], dates[2])
	assert.Error(t, err)
}

package marketdata

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/pkg/formulas"
)

// StaticProvider serves pre-loaded price series. It implements all three
// provider interfaces and is the workhorse behind backtests and tests. Missing
// observations (NaN) are forward-filled, then back-filled for leading gaps.
type StaticProvider struct {
	mu     sync.RWMutex
	dates  []time.Time
	prices map[string][]float64 // aligned to dates, filled
	latest map[string]float64
}

// NewStaticProvider builds a provider from date-aligned price columns. Use
// math.NaN() for missing observations.
func NewStaticProvider(dates []time.Time, prices map[string][]float64) (*StaticProvider, error) {
	filled := make(map[string][]float64, len(prices))
	latest := make(map[string]float64, len(prices))

	for asset, series := range prices {
		if len(series) != len(dates) {
			return nil, fmt.Errorf("price series for %s has %d points, expected %d", asset, len(series), len(dates))
		}
		f := fillMissing(series)
		filled[asset] = f
		if len(f) > 0 {
			latest[asset] = f[len(f)-1]
		}
	}

	return &StaticProvider{dates: dates, prices: filled, latest: latest}, nil
}

// fillMissing forward-fills NaN gaps, then back-fills leading NaNs.
func fillMissing(series []float64) []float64 {
	filled := make([]float64, len(series))
	copy(filled, series)

	var lastValid float64
	hasLastValid := false
	for i := 0; i < len(filled); i++ {
		if math.IsNaN(filled[i]) {
			if hasLastValid {
				filled[i] = lastValid
			}
		} else {
			lastValid = filled[i]
			hasLastValid = true
		}
	}

	var nextValid float64
	hasNextValid := false
	for i := len(filled) - 1; i >= 0; i-- {
		if math.IsNaN(filled[i]) {
			if hasNextValid {
				filled[i] = nextValid
			}
		} else {
			nextValid = filled[i]
			hasNextValid = true
		}
	}

	return filled
}

// AssetReturns implements HistoricalDataProvider. Returns are computed from
// the filled price series restricted to [from, to).
func (p *StaticProvider) AssetReturns(ctx context.Context, assets []string, from, to time.Time) (domain.ReturnMatrix, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReturnMatrix{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	// Select date indices inside the window.
	var idx []int
	for i, d := range p.dates {
		if !d.Before(from) && d.Before(to) {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return domain.ReturnMatrix{Assets: assets}, nil
	}

	matrix := domain.ReturnMatrix{
		Assets:  assets,
		Dates:   make([]time.Time, 0, len(idx)-1),
		Returns: make([][]float64, 0, len(idx)-1),
	}

	for k := 1; k < len(idx); k++ {
		row := make([]float64, len(assets))
		for j, asset := range assets {
			series, ok := p.prices[asset]
			if !ok {
				return domain.ReturnMatrix{}, fmt.Errorf("unknown asset: %s", asset)
			}
			prev := series[idx[k-1]]
			curr := series[idx[k]]
			if prev != 0 && !math.IsNaN(prev) && !math.IsNaN(curr) {
				row[j] = (curr - prev) / prev
			}
		}
		matrix.Dates = append(matrix.Dates, p.dates[idx[k]])
		matrix.Returns = append(matrix.Returns, row)
	}

	return matrix, nil
}

// BenchmarkReturns implements BenchmarkProvider.
func (p *StaticProvider) BenchmarkReturns(ctx context.Context, symbol string, from, to time.Time) (domain.ReturnSeries, error) {
	matrix, err := p.AssetReturns(ctx, []string{symbol}, from, to)
	if err != nil {
		return domain.ReturnSeries{}, err
	}

	returns := matrix.Column(symbol)
	return domain.NewReturnSeries(matrix.Dates, returns)
}

// LatestPrices implements PriceFeed.
func (p *StaticProvider) LatestPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	// Assets without a known price are omitted rather than failing the
	// whole snapshot; the monitor skips unpriced positions.
	out := make(map[string]float64, len(assets))
	for _, asset := range assets {
		if price, ok := p.latest[asset]; ok {
			out[asset] = price
		}
	}
	return out, nil
}

// SetLatestPrice overrides the latest price of an asset. The monitor's price
// refresh worker uses this in tests to simulate a live feed.
func (p *StaticProvider) SetLatestPrice(asset string, price float64) {
	p.mu.Lock()
	p.latest[asset] = price
	p.mu.Unlock()
}

// PricesFor returns the filled price column of an asset, or nil if unknown.
func (p *StaticProvider) PricesFor(asset string) []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	series, ok := p.prices[asset]
	if !ok {
		return nil
	}
	out := make([]float64, len(series))
	copy(out, series)
	return out
}

// ReturnsFor returns the full-history return series of an asset.
func (p *StaticProvider) ReturnsFor(asset string) []float64 {
	return formulas.CalculateReturns(p.PricesFor(asset))
}

// Package marketdata defines the injected data-provider interfaces the
// analytics core consumes. The core never fetches market data itself; callers
// supply date-aligned series through these interfaces.
package marketdata

import (
	"context"
	"time"

	"github.com/aristath/chainfolio/internal/domain"
)

// HistoricalDataProvider serves date-aligned per-asset return series.
type HistoricalDataProvider interface {
	AssetReturns(ctx context.Context, assets []string, from, to time.Time) (domain.ReturnMatrix, error)
}

// BenchmarkProvider serves a benchmark return series for comparisons.
type BenchmarkProvider interface {
	BenchmarkReturns(ctx context.Context, symbol string, from, to time.Time) (domain.ReturnSeries, error)
}

// PriceFeed serves the latest observed price per asset. The monitor polls it.
type PriceFeed interface {
	LatestPrices(ctx context.Context, assets []string) (map[string]float64, error)
}

// chainfolio analyzes a portfolio from a CSV of historical prices and prints
// a plain-text analytics report.
//
// Usage:
//
//	chainfolio -input prices.csv -weights BTC=0.6,ETH=0.4 [-portfolio my-folio]
//
// The CSV's first column is an ISO date, remaining columns are per-asset
// prices with asset names in the header row. Empty cells are filled
// forward/backward.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aristath/chainfolio/internal/alerts"
	"github.com/aristath/chainfolio/internal/cache"
	"github.com/aristath/chainfolio/internal/config"
	"github.com/aristath/chainfolio/internal/engine"
	"github.com/aristath/chainfolio/internal/marketdata"
	"github.com/aristath/chainfolio/pkg/logger"
)

func main() {
	input := flag.String("input", "", "CSV file of historical prices (date,asset,asset,...)")
	weightSpec := flag.String("weights", "", "comma-separated asset=weight pairs")
	portfolioID := flag.String("portfolio", "portfolio", "portfolio identifier for the report")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zl := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(zl)

	if *input == "" || *weightSpec == "" {
		flag.Usage()
		os.Exit(2)
	}

	weights, err := parseWeights(*weightSpec)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid weights")
	}

	dates, prices, err := loadPrices(*input)
	if err != nil {
		log.Fatal().Err(err).Str("file", *input).Msg("failed to load prices")
	}

	provider, err := marketdata.NewStaticProvider(dates, prices)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build data provider")
	}

	var store cache.Store
	if cfg.CachePath != "" {
		sqliteStore, err := cache.NewSQLiteStore(cfg.CachePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CachePath).Msg("failed to open cache")
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		store = cache.NewMemoryStore()
	}

	eng := engine.New(zl, provider, store, alerts.NewLogSink(zl), engine.Config{
		MonteCarloSeed:        uint64(time.Now().UnixNano()),
		MonteCarloSimulations: cfg.MonteCarloSimulations,
		MonteCarloHorizonDays: cfg.MonteCarloHorizonDays,
		PriceRefreshEvery:     cfg.PriceRefreshEvery,
		MonitorPollInterval:   cfg.MonitorPollInterval,
	})
	defer eng.Shutdown()

	ctx := context.Background()
	assets := make([]string, 0, len(prices))
	for asset := range prices {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	matrix, err := provider.AssetReturns(ctx, assets, dates[0], dates[len(dates)-1].AddDate(0, 0, 1))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compute returns")
	}

	portfolio := make([]float64, len(matrix.Returns))
	for i, row := range matrix.Returns {
		for j, asset := range matrix.Assets {
			portfolio[i] += weights[asset] * row[j]
		}
	}

	analysis := eng.AnalyzeComprehensive(engine.AnalysisInput{
		PortfolioID:  *portfolioID,
		Returns:      portfolio,
		Matrix:       matrix,
		Weights:      weights,
		RiskFreeRate: cfg.RiskFreeRate,
	})
	fmt.Print(eng.GenerateReport(analysis))
}

func parseWeights(spec string) (map[string]float64, error) {
	weights := make(map[string]float64)
	sum := 0.0
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		w, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", parts[0], err)
		}
		weights[parts[0]] = w
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("weights must sum to a positive value")
	}
	for asset := range weights {
		weights[asset] /= sum
	}
	return weights, nil
}

func loadPrices(path string) ([]time.Time, map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 3 {
		return nil, nil, fmt.Errorf("need a header and at least 2 price rows")
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, nil, fmt.Errorf("need at least one asset column")
	}
	assets := header[1:]

	dates := make([]time.Time, 0, len(rows)-1)
	prices := make(map[string][]float64, len(assets))
	for _, asset := range assets {
		prices[asset] = make([]float64, 0, len(rows)-1)
	}

	for n, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, nil, fmt.Errorf("row %d has %d columns, expected %d", n+2, len(row), len(header))
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		dates = append(dates, date)
		for i, asset := range assets {
			cell := strings.TrimSpace(row[i+1])
			if cell == "" {
				prices[asset] = append(prices[asset], math.NaN())
				continue
			}
			price, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d asset %s: %w", n+2, asset, err)
			}
			prices[asset] = append(prices[asset], price)
		}
	}

	return dates, prices, nil
}

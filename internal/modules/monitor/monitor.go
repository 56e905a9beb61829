package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/alerts"
	"github.com/aristath/chainfolio/internal/cache"
	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/internal/marketdata"
	"github.com/aristath/chainfolio/internal/modules/performance"
	"github.com/aristath/chainfolio/internal/modules/risk"
	"github.com/aristath/chainfolio/pkg/logger"
)

const (
	defaultPollInterval   = time.Minute
	defaultTrailingWindow = 90
	snapshotTTL           = time.Hour
	alertTTL              = 15 * time.Minute
	feedTimeout           = 10 * time.Second
)

// Monitor supervises one polling worker per portfolio plus a shared
// price-refresh worker. Workers share only a read-mostly price map swapped
// atomically by the refresher; each worker owns its trailing return history.
// Snapshots flow through a channel to a single consumer that runs threshold
// checks, delivers alerts, and caches the latest state.
type Monitor struct {
	log   zerolog.Logger
	feed  marketdata.PriceFeed
	store cache.Store
	sink  alerts.Sink
	risk  *risk.Calculator
	perf  *performance.Analytics

	refreshEvery time.Duration
	defaultPoll  time.Duration
	costRate     float64

	prices    atomic.Value // map[string]float64
	snapshots chan domain.PortfolioSnapshot

	mu      sync.Mutex
	workers map[string]*worker
	configs map[string]domain.MonitoringConfig
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	cron    *cron.Cron
}

type worker struct {
	cancel    context.CancelFunc
	history   []float64
	lastValue float64
}

// Config tunes the shared pieces of the monitor.
type Config struct {
	PriceRefreshEvery time.Duration
	PollInterval      time.Duration // fallback when a portfolio config omits its own
	TransactionCost   float64       // flat rate used for rebalance cost estimates
}

func New(log zerolog.Logger, feed marketdata.PriceFeed, store cache.Store, sink alerts.Sink, cfg Config) *Monitor {
	if cfg.PriceRefreshEvery <= 0 {
		cfg.PriceRefreshEvery = 15 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	m := &Monitor{
		log:          logger.Component(log, "monitor"),
		feed:         feed,
		store:        store,
		sink:         sink,
		risk:         risk.NewCalculator(log),
		perf:         performance.NewAnalytics(log),
		refreshEvery: cfg.PriceRefreshEvery,
		defaultPoll:  cfg.PollInterval,
		costRate:     cfg.TransactionCost,
		snapshots:    make(chan domain.PortfolioSnapshot, 64),
		workers:      make(map[string]*worker),
		configs:      make(map[string]domain.MonitoringConfig),
	}
	m.prices.Store(map[string]float64{})
	return m
}

// StartMonitoring begins polling a portfolio. The first call also starts the
// shared price refresher and the snapshot consumer.
func (m *Monitor) StartMonitoring(portfolioID string, config domain.MonitoringConfig) error {
	if portfolioID == "" {
		return fmt.Errorf("portfolio id is required")
	}
	if len(config.Positions) == 0 {
		return fmt.Errorf("portfolio %s has no positions", portfolioID)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = m.defaultPoll
	}
	if config.TrailingWindow <= 0 {
		config.TrailingWindow = defaultTrailingWindow
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workers[portfolioID]; ok {
		return fmt.Errorf("portfolio %s is already monitored", portfolioID)
	}

	if !m.started {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.started = true
		m.wg.Add(2)
		go m.refreshLoop(ctx)
		go m.consumeSnapshots(ctx)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel}
	m.workers[portfolioID] = w
	m.configs[portfolioID] = config

	m.wg.Add(1)
	go m.pollLoop(ctx, portfolioID, config, w)

	m.log.Info().Str("portfolio", portfolioID).Dur("interval", config.PollInterval).Msg("monitoring started")
	return nil
}

// StopMonitoring cancels one portfolio's worker.
func (m *Monitor) StopMonitoring(portfolioID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[portfolioID]
	if !ok {
		return fmt.Errorf("portfolio %s is not monitored", portfolioID)
	}
	w.cancel()
	delete(m.workers, portfolioID)
	delete(m.configs, portfolioID)
	m.log.Info().Str("portfolio", portfolioID).Msg("monitoring stopped")
	return nil
}

// Stop cancels every worker, the shared refresher, and any scheduled jobs,
// and waits for them to finish. In-flight snapshots are discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	for id, w := range m.workers {
		w.cancel()
		delete(m.workers, id)
		delete(m.configs, id)
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.started = false
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c != nil {
		c.Stop()
	}
	m.wg.Wait()
}

// Schedule registers a cron job (standard 5-field spec) alongside the
// fixed-interval polling, e.g. a daily report generation hook.
func (m *Monitor) Schedule(spec string, job func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron == nil {
		m.cron = cron.New()
		m.cron.Start()
	}
	_, err := m.cron.AddFunc(spec, job)
	return err
}

func (m *Monitor) pollLoop(ctx context.Context, portfolioID string, config domain.MonitoringConfig, w *worker) {
	defer m.wg.Done()
	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, ok := m.poll(portfolioID, config, w)
			if !ok {
				continue
			}
			select {
			case m.snapshots <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}
}

// poll prices the positions from the shared map and recomputes metrics over
// the trailing window. Returns false when no position can be priced yet.
func (m *Monitor) poll(portfolioID string, config domain.MonitoringConfig, w *worker) (domain.PortfolioSnapshot, bool) {
	prices := m.prices.Load().(map[string]float64)

	total := 0.0
	held := make(map[string]float64, len(config.Positions))
	for asset, qty := range config.Positions {
		price, ok := prices[asset]
		if !ok {
			continue
		}
		held[asset] = price
		total += qty * price
	}
	if total <= 0 {
		return domain.PortfolioSnapshot{}, false
	}

	weights := make(domain.PortfolioWeights, len(held))
	for asset, price := range held {
		weights[asset] = config.Positions[asset] * price / total
	}

	if w.lastValue > 0 {
		w.history = append(w.history, total/w.lastValue-1)
		if len(w.history) > config.TrailingWindow {
			w.history = w.history[len(w.history)-config.TrailingWindow:]
		}
	}
	w.lastValue = total

	snapshot := domain.PortfolioSnapshot{
		PortfolioID: portfolioID,
		Timestamp:   time.Now().UTC(),
		TotalValue:  total,
		Positions:   config.Positions,
		Prices:      held,
		Weights:     weights,
	}
	if len(w.history) >= 2 {
		snapshot.Risk = m.risk.Calculate(w.history)
		snapshot.Performance = m.perf.Calculate(w.history, config.RiskFreeRate)
	}
	return snapshot, true
}

func (m *Monitor) refreshLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshPrices(ctx)
		}
	}
}

// refreshPrices fetches the union of monitored assets and swaps in a merged
// price map. Workers only ever read the map, so no locking is needed around
// the swap.
func (m *Monitor) refreshPrices(ctx context.Context) {
	m.mu.Lock()
	assetSet := make(map[string]struct{})
	for _, config := range m.configs {
		for asset := range config.Positions {
			assetSet[asset] = struct{}{}
		}
	}
	m.mu.Unlock()
	if len(assetSet) == 0 {
		return
	}

	assets := make([]string, 0, len(assetSet))
	for a := range assetSet {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	fetchCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()
	latest, err := m.feed.LatestPrices(fetchCtx, assets)
	if err != nil {
		m.log.Warn().Err(err).Msg("price refresh failed")
		return
	}

	old := m.prices.Load().(map[string]float64)
	merged := make(map[string]float64, len(old)+len(latest))
	for k, v := range old {
		merged[k] = v
	}
	for k, v := range latest {
		merged[k] = v
	}
	m.prices.Store(merged)
}

func (m *Monitor) consumeSnapshots(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-m.snapshots:
			m.mu.Lock()
			config, ok := m.configs[snapshot.PortfolioID]
			m.mu.Unlock()
			if !ok {
				continue
			}
			m.cacheSnapshot(snapshot)
			for _, alert := range m.evaluateThresholds(snapshot, config) {
				m.deliver(alert)
			}
		}
	}
}

func (m *Monitor) cacheSnapshot(snapshot domain.PortfolioSnapshot) {
	key := "snapshot:" + snapshot.PortfolioID
	if err := m.store.Set(key, snapshot, snapshotTTL); err != nil {
		m.log.Warn().Err(err).Str("portfolio", snapshot.PortfolioID).Msg("snapshot cache write failed")
	}
}

func (m *Monitor) deliver(alert domain.Alert) {
	m.sink.Send(alert.Message, []string{alert.Type.String(), alert.PortfolioID})
	key := "alert:" + alert.ID
	if err := m.store.Set(key, alert, alertTTL); err != nil {
		m.log.Warn().Err(err).Msg("alert cache write failed")
	}
}

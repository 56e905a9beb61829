package backtest

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/chainfolio/internal/domain"
	"github.com/aristath/chainfolio/internal/modules/optimization"
)

// Strategy computes target weights from historical returns. The history
// passed in is strictly before the rebalance date; implementations must not
// assume any particular length and should fall back to an error when the
// history is too short, which the backtester resolves as equal weights.
type Strategy interface {
	Name() string
	Weights(history domain.ReturnMatrix) (domain.PortfolioWeights, error)
}

// EqualWeightStrategy assigns 1/N to every asset.
type EqualWeightStrategy struct{}

func (EqualWeightStrategy) Name() string { return "equal_weight" }

func (EqualWeightStrategy) Weights(history domain.ReturnMatrix) (domain.PortfolioWeights, error) {
	if len(history.Assets) == 0 {
		return nil, fmt.Errorf("no assets")
	}
	return domain.EqualWeights(history.Assets), nil
}

// OptimizerStrategy solves one of the optimization objectives over annualized
// historical statistics at every rebalance.
type OptimizerStrategy struct {
	objective domain.Objective
	optimizer *optimization.Optimizer
	shrink    bool
}

func NewMinVarianceStrategy(log zerolog.Logger) *OptimizerStrategy {
	return &OptimizerStrategy{objective: domain.ObjectiveMinVariance, optimizer: optimization.NewOptimizer(log), shrink: true}
}

func NewMaxSharpeStrategy(log zerolog.Logger) *OptimizerStrategy {
	return &OptimizerStrategy{objective: domain.ObjectiveMaxSharpe, optimizer: optimization.NewOptimizer(log), shrink: true}
}

func NewRiskParityStrategy(log zerolog.Logger) *OptimizerStrategy {
	return &OptimizerStrategy{objective: domain.ObjectiveRiskParity, optimizer: optimization.NewOptimizer(log), shrink: true}
}

func (s *OptimizerStrategy) Name() string { return s.objective.String() }

func (s *OptimizerStrategy) Weights(history domain.ReturnMatrix) (domain.PortfolioWeights, error) {
	mu, cov, err := optimization.AnnualizedStatistics(history, s.shrink)
	if err != nil {
		return nil, err
	}
	result := s.optimizer.Optimize(mu, cov, s.objective, optimization.Options{})
	if !result.Success {
		return nil, fmt.Errorf("%s optimization failed: %s", s.objective, result.Message)
	}
	return result.Weights, nil
}

// HRPStrategy allocates by hierarchical risk parity.
type HRPStrategy struct {
	hrp *optimization.HRPOptimizer
}

func NewHRPStrategy() *HRPStrategy {
	return &HRPStrategy{hrp: optimization.NewHRPOptimizer()}
}

func (*HRPStrategy) Name() string { return "hrp" }

func (s *HRPStrategy) Weights(history domain.ReturnMatrix) (domain.PortfolioWeights, error) {
	cov, err := optimization.SampleCovariance(history)
	if err != nil {
		return nil, err
	}
	return s.hrp.Optimize(cov)
}

// MomentumStrategy scores assets by the spread between a short and a long
// EMA of a synthetic price series rebuilt from returns, gated by RSI to skip
// overbought names. Assets with non-positive momentum get zero weight; when
// nothing scores, it degrades to equal weights.
type MomentumStrategy struct {
	ShortPeriod int
	LongPeriod  int
	RSIPeriod   int
	RSICeiling  float64
}

func NewMomentumStrategy() *MomentumStrategy {
	return &MomentumStrategy{ShortPeriod: 12, LongPeriod: 26, RSIPeriod: 14, RSICeiling: 80}
}

func (*MomentumStrategy) Name() string { return "momentum" }

func (s *MomentumStrategy) Weights(history domain.ReturnMatrix) (domain.PortfolioWeights, error) {
	n := len(history.Assets)
	if n == 0 {
		return nil, fmt.Errorf("no assets")
	}
	if history.NumObservations() < s.LongPeriod+1 {
		return nil, fmt.Errorf("need at least %d observations, got %d", s.LongPeriod+1, history.NumObservations())
	}

	scores := make(map[string]float64, n)
	total := 0.0
	for _, asset := range history.Assets {
		prices := syntheticPrices(history.Column(asset))
		emaShort := talib.Ema(prices, s.ShortPeriod)
		emaLong := talib.Ema(prices, s.LongPeriod)
		rsi := talib.Rsi(prices, s.RSIPeriod)

		last := len(prices) - 1
		if emaLong[last] <= 0 {
			continue
		}
		momentum := emaShort[last]/emaLong[last] - 1
		if momentum <= 0 || rsi[last] >= s.RSICeiling {
			continue
		}
		scores[asset] = momentum
		total += momentum
	}

	if total <= 0 || math.IsNaN(total) {
		return domain.EqualWeights(history.Assets), nil
	}

	weights := make(domain.PortfolioWeights, len(scores))
	for asset, score := range scores {
		weights[asset] = score / total
	}
	return weights, nil
}

// syntheticPrices rebuilds a base-100 price path from a return series so
// price-based indicators can run on return data.
func syntheticPrices(returns []float64) []float64 {
	prices := make([]float64, len(returns)+1)
	prices[0] = 100
	for i, r := range returns {
		prices[i+1] = prices[i] * (1 + r)
	}
	return prices
}

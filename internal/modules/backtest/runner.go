package backtest

import (
	"fmt"

	"github.com/aristath/chainfolio/internal/domain"
)

// Comparison ranks the results of a multi-strategy run.
type Comparison struct {
	Results          []domain.BacktestResult `json:"results"`
	BestByReturn     string                  `json:"best_by_return"`
	BestBySharpe     string                  `json:"best_by_sharpe"`
	LowestDrawdown   string                  `json:"lowest_drawdown"`
	BestTotalReturn  float64                 `json:"best_total_return"`
	BestSharpeRatio  float64                 `json:"best_sharpe_ratio"`
	SmallestDrawdown float64                 `json:"smallest_drawdown"`
}

// RunAll executes every strategy against the identical data and config and
// builds a comparison report. A strategy whose run fails is skipped; the run
// fails only when no strategy completes.
func (b *Backtester) RunAll(strategies []Strategy, matrix domain.ReturnMatrix, benchmark []float64, config domain.BacktestConfig) (Comparison, error) {
	cmp := Comparison{}
	for _, strategy := range strategies {
		result, err := b.Run(strategy, matrix, benchmark, config)
		if err != nil {
			b.log.Warn().Err(err).Str("strategy", strategy.Name()).Msg("strategy run failed, skipping")
			continue
		}
		cmp.Results = append(cmp.Results, result)
	}
	if len(cmp.Results) == 0 {
		return Comparison{}, fmt.Errorf("no strategy completed")
	}

	for i, r := range cmp.Results {
		if i == 0 || r.Performance.TotalReturn > cmp.BestTotalReturn {
			cmp.BestTotalReturn = r.Performance.TotalReturn
			cmp.BestByReturn = r.Strategy
		}
		if i == 0 || r.Performance.SharpeRatio > cmp.BestSharpeRatio {
			cmp.BestSharpeRatio = r.Performance.SharpeRatio
			cmp.BestBySharpe = r.Strategy
		}
		if i == 0 || r.Risk.MaxDrawdown < cmp.SmallestDrawdown {
			cmp.SmallestDrawdown = r.Risk.MaxDrawdown
			cmp.LowestDrawdown = r.Strategy
		}
	}
	return cmp, nil
}

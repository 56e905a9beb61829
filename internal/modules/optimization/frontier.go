package optimization

import (
	"github.com/aristath/chainfolio/internal/domain"
)

// EfficientFrontier samples the frontier between the minimum-variance and
// maximum-return portfolios: N evenly spaced return targets, each solved as a
// target_return problem. Infeasible points are dropped rather than reported.
func (o *Optimizer) EfficientFrontier(expectedReturns map[string]float64, cov domain.CovarianceMatrix, points int, constraints Constraints) []domain.FrontierPoint {
	if points < 2 {
		points = 2
	}

	minVar := o.Optimize(expectedReturns, cov, domain.ObjectiveMinVariance, Options{Constraints: constraints})
	maxRet := o.Optimize(expectedReturns, cov, domain.ObjectiveMaxReturn, Options{Constraints: constraints})
	if !minVar.Success || !maxRet.Success {
		o.log.Warn().
			Bool("min_variance_ok", minVar.Success).
			Bool("max_return_ok", maxRet.Success).
			Msg("Could not bound achievable returns, frontier is empty")
		return nil
	}

	low, high := minVar.ExpectedReturn, maxRet.ExpectedReturn
	if high < low {
		low, high = high, low
	}

	frontier := make([]domain.FrontierPoint, 0, points)
	step := (high - low) / float64(points-1)
	for i := 0; i < points; i++ {
		target := low + float64(i)*step
		result := o.Optimize(expectedReturns, cov, domain.ObjectiveTargetReturn, Options{
			Constraints:  constraints,
			TargetReturn: &target,
		})
		if !result.Success {
			o.log.Debug().Float64("target", target).Str("reason", result.Message).Msg("Dropping infeasible frontier point")
			continue
		}
		frontier = append(frontier, domain.FrontierPoint{
			ExpectedReturn: result.ExpectedReturn,
			Volatility:     result.Volatility,
			SharpeRatio:    result.SharpeRatio,
			Weights:        result.Weights,
		})
	}

	return frontier
}

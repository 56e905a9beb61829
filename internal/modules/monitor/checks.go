package monitor

import (
	"fmt"
	"math"

	"github.com/aristath/chainfolio/internal/alerts"
	"github.com/aristath/chainfolio/internal/domain"
)

// rebalanceNotionalFloor drops suggestions below 1% of portfolio value.
const rebalanceNotionalFloor = 0.01

// evaluateThresholds runs every configured check against one snapshot.
// Zero-valued floors and ceilings disable their check.
func (m *Monitor) evaluateThresholds(snapshot domain.PortfolioSnapshot, config domain.MonitoringConfig) []domain.Alert {
	var out []domain.Alert

	if config.VaR95Floor < 0 && snapshot.Risk.VaR95 < config.VaR95Floor {
		out = append(out, alerts.New(snapshot.PortfolioID, domain.AlertRiskThreshold,
			fmt.Sprintf("VaR95 %.2f%% breached floor %.2f%%", snapshot.Risk.VaR95*100, config.VaR95Floor*100),
			map[string]float64{"var_95": snapshot.Risk.VaR95, "floor": config.VaR95Floor}))
	}
	// Risk.MaxDrawdown is a positive fraction; the configured floor is signed.
	if config.MaxDrawdownFloor < 0 && snapshot.Risk.MaxDrawdown > -config.MaxDrawdownFloor {
		out = append(out, alerts.New(snapshot.PortfolioID, domain.AlertRiskThreshold,
			fmt.Sprintf("max drawdown %.2f%% breached floor %.2f%%", -snapshot.Risk.MaxDrawdown*100, config.MaxDrawdownFloor*100),
			map[string]float64{"max_drawdown": snapshot.Risk.MaxDrawdown, "floor": config.MaxDrawdownFloor}))
	}
	if config.SharpeFloor != 0 && snapshot.Performance.SharpeRatio < config.SharpeFloor {
		out = append(out, alerts.New(snapshot.PortfolioID, domain.AlertPerformance,
			fmt.Sprintf("Sharpe ratio %.2f below floor %.2f", snapshot.Performance.SharpeRatio, config.SharpeFloor),
			map[string]float64{"sharpe": snapshot.Performance.SharpeRatio, "floor": config.SharpeFloor}))
	}
	if config.PositionCeiling > 0 {
		for asset, w := range snapshot.Weights {
			if w > config.PositionCeiling {
				out = append(out, alerts.New(snapshot.PortfolioID, domain.AlertPositionLimit,
					fmt.Sprintf("position %s at %.2f%% exceeds ceiling %.2f%%", asset, w*100, config.PositionCeiling*100),
					map[string]float64{"weight": w, "ceiling": config.PositionCeiling}))
			}
		}
	}
	if len(config.TargetWeights) > 0 && config.RebalanceThreshold > 0 {
		maxDev := 0.0
		for asset, target := range config.TargetWeights {
			dev := math.Abs(snapshot.Weights[asset] - target)
			if dev > maxDev {
				maxDev = dev
			}
		}
		if maxDev > config.RebalanceThreshold {
			out = append(out, alerts.New(snapshot.PortfolioID, domain.AlertRebalanceNeeded,
				fmt.Sprintf("weight deviation %.2f%% exceeds threshold %.2f%%", maxDev*100, config.RebalanceThreshold*100),
				map[string]float64{"max_deviation": maxDev, "threshold": config.RebalanceThreshold}))
		}
	}

	return out
}

// SuggestRebalance proposes sized trades for every asset whose deviation from
// target, in money terms, exceeds 1% of portfolio value, with a flat-rate
// cost estimate.
func (m *Monitor) SuggestRebalance(snapshot domain.PortfolioSnapshot, targets domain.PortfolioWeights) domain.RebalancePlan {
	plan := domain.RebalancePlan{}
	if snapshot.TotalValue <= 0 || len(targets) == 0 {
		return plan
	}

	assets := make(map[string]struct{}, len(targets)+len(snapshot.Weights))
	for a := range targets {
		assets[a] = struct{}{}
	}
	for a := range snapshot.Weights {
		assets[a] = struct{}{}
	}

	for asset := range assets {
		current := snapshot.Weights[asset]
		target := targets[asset]
		notional := math.Abs(current-target) * snapshot.TotalValue
		if notional <= rebalanceNotionalFloor*snapshot.TotalValue {
			continue
		}
		side := "buy"
		if current > target {
			side = "sell"
		}
		plan.Suggestions = append(plan.Suggestions, domain.RebalanceSuggestion{
			Asset:         asset,
			Side:          side,
			Notional:      notional,
			CurrentWeight: current,
			TargetWeight:  target,
		})
		plan.TotalNotional += notional
	}
	plan.EstimatedCost = plan.TotalNotional * m.costRate
	return plan
}

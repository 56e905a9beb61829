package domain

import "fmt"

// Objective identifies a portfolio optimization objective.
type Objective int

const (
	ObjectiveMaxSharpe Objective = iota
	ObjectiveMinVariance
	ObjectiveMaxReturn
	ObjectiveRiskParity
	ObjectiveTargetReturn
	ObjectiveTargetRisk
)

// String returns the wire-friendly name of the objective.
func (o Objective) String() string {
	switch o {
	case ObjectiveMaxSharpe:
		return "max_sharpe"
	case ObjectiveMinVariance:
		return "min_variance"
	case ObjectiveMaxReturn:
		return "max_return"
	case ObjectiveRiskParity:
		return "risk_parity"
	case ObjectiveTargetReturn:
		return "target_return"
	case ObjectiveTargetRisk:
		return "target_risk"
	default:
		return "unknown"
	}
}

// ParseObjective converts a string name to an Objective.
func ParseObjective(s string) (Objective, error) {
	switch s {
	case "max_sharpe":
		return ObjectiveMaxSharpe, nil
	case "min_variance":
		return ObjectiveMinVariance, nil
	case "max_return":
		return ObjectiveMaxReturn, nil
	case "risk_parity":
		return ObjectiveRiskParity, nil
	case "target_return":
		return ObjectiveTargetReturn, nil
	case "target_risk":
		return ObjectiveTargetRisk, nil
	default:
		return 0, fmt.Errorf("unknown objective: %s", s)
	}
}

// ScenarioType identifies a stress-test scenario family.
type ScenarioType int

const (
	ScenarioHistorical ScenarioType = iota
	ScenarioMonteCarlo
	ScenarioHypothetical
	ScenarioFactorShock
	ScenarioTailRisk
)

// String returns the wire-friendly name of the scenario type.
func (s ScenarioType) String() string {
	switch s {
	case ScenarioHistorical:
		return "historical"
	case ScenarioMonteCarlo:
		return "monte_carlo"
	case ScenarioHypothetical:
		return "hypothetical"
	case ScenarioFactorShock:
		return "factor_shock"
	case ScenarioTailRisk:
		return "tail_risk"
	default:
		return "unknown"
	}
}

// RebalanceFrequency identifies how often a backtest rebalances.
type RebalanceFrequency int

const (
	RebalanceDaily RebalanceFrequency = iota
	RebalanceWeekly
	RebalanceMonthly
	RebalanceQuarterly
	RebalanceAnnually
	RebalanceNever
)

// String returns the wire-friendly name of the frequency.
func (f RebalanceFrequency) String() string {
	switch f {
	case RebalanceDaily:
		return "daily"
	case RebalanceWeekly:
		return "weekly"
	case RebalanceMonthly:
		return "monthly"
	case RebalanceQuarterly:
		return "quarterly"
	case RebalanceAnnually:
		return "annually"
	case RebalanceNever:
		return "never"
	default:
		return "unknown"
	}
}

// ParseRebalanceFrequency converts a string name to a RebalanceFrequency.
func ParseRebalanceFrequency(s string) (RebalanceFrequency, error) {
	switch s {
	case "daily":
		return RebalanceDaily, nil
	case "weekly":
		return RebalanceWeekly, nil
	case "monthly":
		return RebalanceMonthly, nil
	case "quarterly":
		return RebalanceQuarterly, nil
	case "annually":
		return RebalanceAnnually, nil
	case "never":
		return RebalanceNever, nil
	default:
		return 0, fmt.Errorf("unknown rebalance frequency: %s", s)
	}
}

// AlertType identifies what triggered a monitoring alert.
type AlertType int

const (
	AlertRiskThreshold AlertType = iota
	AlertPerformance
	AlertPositionLimit
	AlertRebalanceNeeded
)

// String returns the wire-friendly name of the alert type.
func (a AlertType) String() string {
	switch a {
	case AlertRiskThreshold:
		return "RISK_THRESHOLD"
	case AlertPerformance:
		return "PERFORMANCE_ALERT"
	case AlertPositionLimit:
		return "POSITION_LIMIT"
	case AlertRebalanceNeeded:
		return "REBALANCE_NEEDED"
	default:
		return "UNKNOWN"
	}
}

package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// GenerateReport renders a comprehensive analysis as a plain-text report and
// caches it alongside the analysis.
func (e *Engine) GenerateReport(analysis ComprehensiveAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Portfolio Report: %s\n", analysis.PortfolioID)
	fmt.Fprintf(&b, "Generated: %s\n\n", analysis.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Risk\n")
	fmt.Fprintf(&b, "- VaR 95%%: %.2f%%\n", analysis.Risk.VaR95*100)
	fmt.Fprintf(&b, "- VaR 99%%: %.2f%%\n", analysis.Risk.VaR99*100)
	fmt.Fprintf(&b, "- CVaR 95%%: %.2f%%\n", analysis.Risk.CVaR95*100)
	fmt.Fprintf(&b, "- Max drawdown: %.2f%%\n", analysis.Risk.MaxDrawdown*100)
	fmt.Fprintf(&b, "- Annual volatility: %.2f%%\n", analysis.Risk.AnnualVolatility*100)
	fmt.Fprintf(&b, "- Skewness: %.2f, kurtosis: %.2f\n\n", analysis.Risk.Skewness, analysis.Risk.Kurtosis)

	b.WriteString("## Performance\n")
	fmt.Fprintf(&b, "- Total return: %.2f%%\n", analysis.Performance.TotalReturn*100)
	fmt.Fprintf(&b, "- Annualized return: %.2f%%\n", analysis.Performance.AnnualizedReturn*100)
	fmt.Fprintf(&b, "- Sharpe: %.2f, Sortino: %.2f, Calmar: %.2f\n", analysis.Performance.SharpeRatio, analysis.Performance.SortinoRatio, analysis.Performance.CalmarRatio)
	fmt.Fprintf(&b, "- Win rate: %.1f%%, profit factor: %.2f\n\n", analysis.Performance.WinRate*100, analysis.Performance.ProfitFactor)

	if analysis.Diversification != nil {
		d := analysis.Diversification
		b.WriteString("## Diversification\n")
		fmt.Fprintf(&b, "- Score: %.0f/100\n", d.DiversificationScore)
		fmt.Fprintf(&b, "- Average correlation: %.2f\n", d.AvgCorrelation)
		fmt.Fprintf(&b, "- Effective assets: %.1f (HHI %.3f)\n", d.EffectiveN, d.HHI)
		fmt.Fprintf(&b, "- Diversification ratio: %.2f\n", d.DiversificationRatio)
		fmt.Fprintf(&b, "- Clusters: %d\n\n", d.ClusterCount)
	}

	if analysis.Stress != nil && analysis.Stress.ScenarioRuns > 0 {
		s := analysis.Stress
		b.WriteString("## Stress Testing\n")
		fmt.Fprintf(&b, "- Scenarios run: %d\n", s.ScenarioRuns)
		fmt.Fprintf(&b, "- Worst loss: %.2f%% (%s)\n", s.WorstLoss*100, s.WorstByName)
		fmt.Fprintf(&b, "- Average loss: %.2f%%\n", s.AverageLoss*100)
		fmt.Fprintf(&b, "- Losses over 10%%: %d, over 20%%: %d\n\n", s.CountOver10, s.CountOver20)
	}

	if len(analysis.Suggestions) > 0 {
		b.WriteString("## Optimization Suggestions\n")
		names := make([]string, 0, len(analysis.Suggestions))
		for name := range analysis.Suggestions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			result := analysis.Suggestions[name]
			if !result.Success {
				fmt.Fprintf(&b, "- %s: failed (%s)\n", name, result.Message)
				continue
			}
			fmt.Fprintf(&b, "- %s: return %.2f%%, volatility %.2f%%, Sharpe %.2f\n",
				name, result.ExpectedReturn*100, result.Volatility*100, result.SharpeRatio)
		}
		b.WriteString("\n")
	}

	if len(analysis.Alerts) > 0 {
		b.WriteString("## Alerts\n")
		for _, alert := range analysis.Alerts {
			fmt.Fprintf(&b, "- [%s] %s\n", alert.Type, alert.Message)
		}
		b.WriteString("\n")
	}

	if analysis.Error != "" {
		fmt.Fprintf(&b, "## Incomplete Sections\n%s\n", analysis.Error)
	}

	report := b.String()
	e.cacheResult("report:"+analysis.PortfolioID, report)
	return report
}

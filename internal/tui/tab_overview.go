package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/config"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/tui/components"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(an *model.BillAnalysis, cw int) string {
	if an == nil {
		return ""
	}
	t := theme.Active
	cost := an.CostAnalysis
	usage := an.UsageAnalysis
	var b strings.Builder

	// Row 1: metric cards
	trendColor := t.TextDim
	switch usage.Trend {
	case model.TrendIncreasing:
		trendColor = t.Orange
	case model.TrendDecreasing:
		trendColor = t.Green
	}
	metrics := []components.Metric{
		{Label: "Total", Value: cli.FormatMoney(an.TotalAmount), Delta: an.BillingPeriod},
		{Label: "Lines", Value: fmt.Sprintf("%d", an.LineCount()), Delta: "acct " + an.AccountNumber},
		{
			Label:      "Projected Next",
			Value:      cli.FormatMoney(cost.ProjectedNextBill),
			Delta:      fmt.Sprintf("%s %s", usage.Trend, cli.FormatChange(usage.PercentageChange)),
			DeltaColor: trendColor,
		},
		{
			Label:      "Switch to " + config.CarrierNames[a.carrier()],
			Value:      cli.FormatSavings(a.quote.MonthlySavings),
			Delta:      cli.FormatSavings(a.quote.AnnualSavings) + "/yr",
			DeltaColor: t.SavingsColor(a.quote.MonthlySavings),
		},
	}
	if a.isCompactLayout() {
		b.WriteString(components.MetricCardRow(metrics[:2], cw))
		b.WriteString("\n")
		b.WriteString(components.MetricCardRow(metrics[2:], cw))
	} else {
		b.WriteString(components.MetricCardRow(metrics, cw))
	}
	b.WriteString("\n")

	// Row 2: usage + potential savings
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	amountStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)

	var usageBody strings.Builder
	rows := [][2]string{
		{"Average bill", cli.FormatMoney(cost.AverageMonthlyBill)},
		{"Usage", cli.FormatUsage(usage.AvgDataUsage, usage.AvgTalkMinutes, usage.AvgTextCount)},
		{"Recommended", an.PlanRecommendation.RecommendedPlan},
		{"Confidence", cli.FormatPercent(an.PlanRecommendation.ConfidenceScore)},
	}
	for i, r := range rows {
		if i > 0 {
			usageBody.WriteString("\n")
		}
		usageBody.WriteString(labelStyle.Render(fmt.Sprintf("%-13s", r[0])))
		usageBody.WriteString(valueStyle.Render(r[1]))
	}

	var savingsBody strings.Builder
	if len(cost.PotentialSavings) == 0 {
		savingsBody.WriteString(labelStyle.Render("No savings opportunities found"))
	}
	halves := components.LayoutRow(cw, 2)
	descW := components.CardInnerWidth(halves[1]) - 12
	for i, item := range cost.PotentialSavings {
		if i > 0 {
			savingsBody.WriteString("\n")
		}
		savingsBody.WriteString(valueStyle.Render(fmt.Sprintf("%-*s", descW, truncStr(item.Description, descW))))
		savingsBody.WriteString(amountStyle.Render(fmt.Sprintf("%12s", cli.FormatMoney(item.EstimatedAmount))))
	}

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Account", usageBody.String(), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Potential Savings", savingsBody.String(), cw))
	} else {
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Account", usageBody.String(), halves[0]),
			components.ContentCard("Potential Savings", savingsBody.String(), halves[1]),
		}))
	}

	return b.String()
}

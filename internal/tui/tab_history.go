package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/tui/components"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderHistoryTab(cw int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if a.historyErr != nil {
		return components.ContentCard("History", lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).
			Render("Could not load history: "+a.historyErr.Error()), cw)
	}
	if len(a.history) == 0 {
		return components.ContentCard("History", mutedStyle.Render("No stored analyses yet"), cw)
	}

	var b strings.Builder
	stats := pipeline.Summarize(a.history)

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Analyses", Value: fmt.Sprintf("%d", stats.Analyses), Delta: fmt.Sprintf("%d accounts", stats.Accounts)},
		{Label: "Total Billed", Value: cli.FormatCompactMoney(stats.TotalBilled)},
		{Label: "Average Bill", Value: cli.FormatMoney(stats.AverageBill), Delta: fmt.Sprintf("%.1f lines", stats.AverageLines)},
		{Label: "Potential Savings", Value: cli.FormatMoney(stats.PotentialSavings), Delta: "per month", DeltaColor: t.GreenBright},
	}, cw))
	b.WriteString("\n")

	// History is newest first; the chart reads oldest-left.
	n := len(a.history)
	vals := make([]float64, n)
	labels := make([]string, n)
	for i, h := range a.history {
		vals[n-1-i] = h.TotalAmount
		labels[n-1-i] = h.CreatedAt.Local().Format("Jan 2")
	}
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Bill Totals (last %d)", n),
		components.BarChart(vals, labels, t.Blue, components.CardInnerWidth(cw), 8),
		cw,
	))
	b.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	current := ""
	if an := a.machine.Analysis(); an != nil {
		current = an.ID
	}
	now := time.Now()

	var lb strings.Builder
	lb.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-14s %-16s %6s %12s %10s", "ID", "Account", "Period", "Lines", "Total", "Analyzed")))
	for _, h := range a.history {
		lb.WriteString("\n")
		row := fmt.Sprintf("%-10s %-14s %-16s %6d %12s %10s",
			cli.FormatShortID(h.ID),
			truncStr(h.AccountNumber, 14),
			truncStr(h.BillingPeriod, 16),
			h.LineCount(),
			cli.FormatMoney(h.TotalAmount),
			cli.FormatAge(h.CreatedAt, now),
		)
		if h.ID == current {
			lb.WriteString(headerStyle.Render(row))
		} else {
			lb.WriteString(rowStyle.Render(row))
		}
	}
	b.WriteString(components.ContentCard("Recent Analyses", lb.String(), cw))

	return b.String()
}

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

func (a App) renderQuoteTab(an *model.BillAnalysis, cw int) string {
	if an == nil {
		return ""
	}
	t := theme.Active
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	// Quotes for every selectable carrier; the preferred one is highlighted.
	var qb strings.Builder
	qb.WriteString(headerStyle.Render(fmt.Sprintf("%-10s %-24s %10s %12s %12s", "Carrier", "Plan", "Price", "Monthly", "Annual")))
	qb.WriteString("\n")
	for i, c := range config.Carriers {
		q := a.quoteFor(c, an)
		row := fmt.Sprintf("%-10s %-24s %10s ", config.CarrierNames[c], truncStr(q.PlanName, 24), cli.FormatMoney(q.Price))
		savingsStyle := lipgloss.NewStyle().Foreground(t.SavingsColor(q.MonthlySavings)).Background(t.Surface)
		if i == a.carrierIdx {
			qb.WriteString(selectedStyle.Render(row))
			savingsStyle = savingsStyle.Background(t.SurfaceHover).Bold(true)
		} else {
			qb.WriteString(rowStyle.Render(row))
		}
		qb.WriteString(savingsStyle.Render(fmt.Sprintf("%12s %12s", cli.FormatSavings(q.MonthlySavings), cli.FormatSavings(q.AnnualSavings))))
		qb.WriteString("\n")
	}
	qb.WriteString("\n")
	qb.WriteString(mutedStyle.Render(fmt.Sprintf("Priced at a flat per-line rate for %d lines against %s today · c to change carrier",
		an.LineCount(), cli.FormatMoney(an.TotalAmount))))
	b.WriteString(components.ContentCard("Switching Quotes", qb.String(), cw))
	b.WriteString("\n")

	// Recommendation
	rec := an.PlanRecommendation
	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}

	var rb strings.Builder
	rb.WriteString(rowStyle.Render(rec.RecommendedPlan))
	rb.WriteString(mutedStyle.Render(" saves about "))
	rb.WriteString(lipgloss.NewStyle().Foreground(t.SavingsColor(rec.EstimatedMonthlySavings)).Background(t.Surface).
		Render(cli.FormatMoney(rec.EstimatedMonthlySavings) + "/mo"))
	rb.WriteString("\n\n")
	rb.WriteString(mutedStyle.Render("Confidence "))
	rb.WriteString(components.ProgressBar(rec.ConfidenceScore, 24))
	rb.WriteString("\n")
	for _, reason := range rec.Reasons {
		rb.WriteString("\n")
		rb.WriteString(mutedStyle.Render("• " + reason))
	}
	recCard := components.ContentCard("Recommendation", rb.String(), halves[0])

	// Alternatives
	var ab strings.Builder
	if len(rec.AlternativePlans) == 0 {
		ab.WriteString(mutedStyle.Render("No alternatives"))
	}
	goodStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	badStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	for i, alt := range rec.AlternativePlans {
		if i > 0 {
			ab.WriteString("\n\n")
		}
		ab.WriteString(headerStyle.Render(alt.Name))
		ab.WriteString(mutedStyle.Render(fmt.Sprintf("  %s/mo · ", cli.FormatMoney(alt.MonthlyCost))))
		ab.WriteString(lipgloss.NewStyle().Foreground(t.SavingsColor(alt.EstimatedSavings)).Background(t.Surface).
			Render(cli.FormatSavings(alt.EstimatedSavings)))
		for _, p := range alt.Pros {
			ab.WriteString("\n")
			ab.WriteString(goodStyle.Render("+ " + p))
		}
		for _, c := range alt.Cons {
			ab.WriteString("\n")
			ab.WriteString(badStyle.Render("- " + c))
		}
	}
	altCard := components.ContentCard("Alternative Plans", ab.String(), halves[1])

	if a.isCompactLayout() {
		b.WriteString(recCard)
		b.WriteString("\n")
		b.WriteString(altCard)
	} else {
		b.WriteString(components.CardRow([]string{recCard, altCard}))
	}
	return b.String()
}

// quoteFor returns the cached quote for the selected carrier, computing the
// others on demand.
func (a App) quoteFor(carrier string, an *model.BillAnalysis) model.SavingsQuote {
	if carrier == a.carrier() {
		return a.quote
	}
	if a.analyzer == nil {
		return model.SavingsQuote{PlanName: "N/A"}
	}
	return a.analyzer.Quote(carrier, an)
}

package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/pipeline"
	"github.com/theirongolddev/billcheck/internal/tui/components"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderBreakdownTab(an *model.BillAnalysis, cw int) string {
	if an == nil {
		return ""
	}
	t := theme.Active
	var b strings.Builder

	// Charges by category
	shares := pipeline.CategoryShares(an.ChargesByCategory)
	labels := make([]string, len(shares))
	values := make([]float64, len(shares))
	for i, s := range shares {
		labels[i] = s.Name
		values[i] = s.Total
	}
	catInner := components.CardInnerWidth(cw)
	catBody := components.HorizontalBars(labels, values, catInner)

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	catBody += "\n" + mutedStyle.Render(fmt.Sprintf("Category total %s · bill total %s",
		cli.FormatMoney(an.ChargesByCategory.Sum()), cli.FormatMoney(an.TotalAmount)))
	b.WriteString(components.ContentCard("Charges by Category", catBody, cw))
	b.WriteString("\n")

	// Lines ranked by cost
	ranked := pipeline.RankLines(an.PhoneLines)
	labelW := 0
	for _, lc := range ranked {
		if w := lipgloss.Width(lc.DeviceName); w > labelW {
			labelW = w
		}
	}
	if labelW > 24 {
		labelW = 24
	}
	barW := catInner - labelW - 20
	if barW < 10 {
		barW = 10
	}

	var lineBody strings.Builder
	for i, lc := range ranked {
		if i > 0 {
			lineBody.WriteString("\n")
		}
		lineBody.WriteString(components.ShareBar(truncStr(lc.DeviceName, labelW), lc.Share, cli.FormatMoney(lc.Net), labelW, barW))
	}
	b.WriteString(components.ContentCard("Lines by Cost", lineBody.String(), cw))

	return b.String()
}

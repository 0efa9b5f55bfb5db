package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/billcheck/internal/cli"
	"github.com/theirongolddev/billcheck/internal/model"
	"github.com/theirongolddev/billcheck/internal/tui/components"
	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// linesState holds the lines tab state.
type linesState struct {
	cursor int
	offset int // scroll offset for the list
}

func (s *linesState) up() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *linesState) down(n int) {
	if s.cursor < n-1 {
		s.cursor++
	}
}

func (a App) renderLinesTab(an *model.BillAnalysis, cw, h int) string {
	t := theme.Active
	if an == nil || len(an.PhoneLines) == 0 {
		return components.ContentCard("Lines", lipgloss.NewStyle().Foreground(t.TextMuted).Render("No lines on this bill"), cw)
	}

	ls := a.lines
	if ls.cursor >= len(an.PhoneLines) {
		ls.cursor = len(an.PhoneLines) - 1
	}
	sel := an.PhoneLines[ls.cursor]

	if a.isCompactLayout() {
		list := a.renderLineList(an.PhoneLines, ls, cw, h/2)
		detail := components.ContentCard(lineTitle(ls.cursor, sel), renderLineDetail(sel, cw), cw)
		return list + "\n" + detail
	}

	leftW := cw / 3
	if leftW < 34 {
		leftW = 34
	}
	rightW := cw - leftW

	return components.CardRow([]string{
		a.renderLineList(an.PhoneLines, ls, leftW, h),
		components.ContentCard(lineTitle(ls.cursor, sel), renderLineDetail(sel, rightW), rightW),
	})
}

func lineTitle(i int, l model.PhoneLine) string {
	if l.PhoneNumber != "" {
		return fmt.Sprintf("Line %d · %s", i+1, l.PhoneNumber)
	}
	return fmt.Sprintf("Line %d", i+1)
}

func (a App) renderLineList(lines []model.PhoneLine, ls linesState, w, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	visible := h - 5 // card border (2) + title (1) + footer hint (2)
	if visible < 3 {
		visible = 3
	}
	offset := ls.offset
	if ls.cursor < offset {
		offset = ls.cursor
	}
	if ls.cursor >= offset+visible {
		offset = ls.cursor - visible + 1
	}
	end := offset + visible
	if end > len(lines) {
		end = len(lines)
	}

	nameW := inner - 12
	if nameW < 8 {
		nameW = 8
	}

	var body strings.Builder
	for i := offset; i < end; i++ {
		l := lines[i]
		row := fmt.Sprintf("%-*s%12s", nameW, truncStr(l.DeviceName, nameW), cli.FormatMoney(l.MonthlyTotal))
		if i == ls.cursor {
			body.WriteString(selectedStyle.Render(row))
		} else {
			body.WriteString(rowStyle.Render(row))
		}
		body.WriteString("\n")
	}
	body.WriteString("\n")
	body.WriteString(hintStyle.Render("j/k to select"))

	return components.ContentCard(fmt.Sprintf("Lines (%d)", len(lines)), body.String(), w)
}

// renderLineDetail renders the charge breakdown for one line.
func renderLineDetail(l model.PhoneLine, w int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(w)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	creditStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	ruleStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)

	var body strings.Builder
	body.WriteString(valueStyle.Render(l.DeviceName))
	body.WriteString(labelStyle.Render(" · " + l.PlanName))
	body.WriteString("\n")
	body.WriteString(ruleStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %12s", "Charge", "Amount")))
	body.WriteString("\n")

	d := l.Details
	rows := []struct {
		label  string
		amount float64
		credit bool
	}{
		{"Plan", d.PlanCost, false},
		{"Plan discount", d.PlanDiscount, true},
		{"Device payment", d.DevicePayment, false},
		{"Device credit", d.DeviceCredit, true},
		{"Protection", d.Protection, false},
		{"Perks", d.Perks, false},
		{"Perks discount", d.PerksDiscount, true},
		{"Surcharges", d.Surcharges, false},
		{"Taxes", d.Taxes, false},
	}
	for _, r := range rows {
		if r.amount == 0 {
			continue
		}
		body.WriteString(labelStyle.Render(fmt.Sprintf("%-20s ", r.label)))
		if r.credit {
			body.WriteString(creditStyle.Render(fmt.Sprintf("%12s", cli.FormatMoney(-r.amount))))
		} else {
			body.WriteString(valueStyle.Render(fmt.Sprintf("%12s", cli.FormatMoney(r.amount))))
		}
		body.WriteString("\n")
	}
	body.WriteString(ruleStyle.Render(strings.Repeat("─", 33)))
	body.WriteString("\n")
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-20s %12s", "Monthly total", cli.FormatMoney(l.MonthlyTotal))))

	return body.String()
}

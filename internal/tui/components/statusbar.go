package components

import (
	"strings"

	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar. state names the session
// state and detail is shown right-aligned (carrier, source file, errors).
func RenderStatusBar(width int, state, detail string) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)
	stateStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface).
		Bold(true)

	left := " " + stateStyle.Render(state) + style.Inline(true).Render("  [?]help  [n]ew  [q]uit")
	right := ""
	if detail != "" {
		right = detail + " "
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}

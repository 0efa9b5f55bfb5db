package components

import (
	"strings"

	"github.com/theirongolddev/billcheck/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Lines", Key: 'l', KeyPos: 0},
	{Name: "Breakdown", Key: 'b', KeyPos: 0},
	{Name: "Quote", Key: 'u', KeyPos: 1},
	{Name: "History", Key: 'h', KeyPos: 0},
}

const tabGap = "  "

// renderTab renders one tab. Inactive tabs show their shortcut as "[k]".
func renderTab(tab Tab, active bool) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Background).Bold(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Background)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Background).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Background)

	if active {
		return activeStyle.Render(tab.Name)
	}
	if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
		before := tab.Name[:tab.KeyPos]
		key := string(tab.Name[tab.KeyPos])
		after := tab.Name[tab.KeyPos+1:]
		return inactiveStyle.Render(before) +
			dimKeyStyle.Render("[") + keyStyle.Render(key) + dimKeyStyle.Render("]") +
			inactiveStyle.Render(after)
	}
	return inactiveStyle.Render(tab.Name) +
		dimKeyStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimKeyStyle.Render("]")
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active
	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = renderTab(tab, i == activeIdx)
	}
	gap := lipgloss.NewStyle().Background(t.Background).Render(tabGap)
	row := " " + strings.Join(parts, gap)
	return lipgloss.NewStyle().Background(t.Background).Width(width).Render(row)
}

// TabVisualWidth returns the rendered width of tab i when it is or is not
// the active tab. Mouse hit-testing uses it to map a click column to a tab.
func TabVisualWidth(i int, active bool) int {
	if i < 0 || i >= len(Tabs) {
		return 0
	}
	return lipgloss.Width(renderTab(Tabs[i], active))
}

// TabGapWidth is the number of columns between adjacent tabs.
func TabGapWidth() int {
	return len(tabGap)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

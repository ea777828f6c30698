package components

import (
	"strings"

	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines the dataset tabs, in dataset order.
var Tabs = []Tab{
	{Name: "Revenue", Key: '1', KeyPos: -1},
	{Name: "Expenditure", Key: '2', KeyPos: -1},
}

// tabPadding is the horizontal padding on each side of a tab label.
const tabPadding = 1

// TabVisualWidth returns the rendered width of a tab. Inactive tabs show
// their shortcut as a "[k]" suffix when the key is not part of the name.
func TabVisualWidth(tab Tab, active bool) int {
	w := lipgloss.Width(tab.Name) + 2*tabPadding
	if !active && tab.KeyPos < 0 {
		w += 3
	}
	return w
}

// RenderTabBar renders the tab bar with the given active index. Tabs whose
// dataset failed are drawn in the error color.
func RenderTabBar(activeIdx int, failed []bool, width int) string {
	t := theme.Active

	base := lipgloss.NewStyle().Background(t.Surface).Padding(0, tabPadding)
	activeStyle := base.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	failedStyle := lipgloss.NewStyle().Foreground(t.Negative).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	sepStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)
	padStyle := lipgloss.NewStyle().Background(t.Surface)

	var parts []string
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}

		nameStyle := inactiveStyle
		if i < len(failed) && failed[i] {
			nameStyle = failedStyle
		}
		pad := padStyle.Render(strings.Repeat(" ", tabPadding))
		if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
			before := tab.Name[:tab.KeyPos]
			key := string(tab.Name[tab.KeyPos])
			after := tab.Name[tab.KeyPos+1:]
			parts = append(parts, pad+nameStyle.Render(before)+keyStyle.Render(key)+nameStyle.Render(after)+pad)
		} else {
			parts = append(parts, pad+nameStyle.Render(tab.Name)+
				dimKeyStyle.Render("[")+keyStyle.Render(string(tab.Key))+dimKeyStyle.Render("]")+pad)
		}
	}

	row := strings.Join(parts, sepStyle.Render("│"))
	if gap := width - lipgloss.Width(row); gap > 0 {
		row += padStyle.Render(strings.Repeat(" ", gap))
	}
	return row
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

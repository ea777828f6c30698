package components

import (
	"fmt"

	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a gradient progress bar followed by a percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = clampPct(pct)
	if width < 4 {
		width = 4
	}

	bar := progress.New(
		progress.WithGradient(string(t.Accent), string(t.AccentBright)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(pct) + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}

// LabeledProgress renders "label  [bar] pct  done/total" on one line.
func LabeledProgress(label string, done, total, labelW, barW int) string {
	t := theme.Active
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		ProgressBar(pct, barW) +
		spaceStyle.Render("  ") +
		countStyle.Render(fmt.Sprintf("%d/%d", done, total))
}

// ColorForChange returns the positive or negative color for a delta.
func ColorForChange(delta float64) lipgloss.Color {
	t := theme.Active
	switch {
	case delta > 0:
		return t.Positive
	case delta < 0:
		return t.Negative
	default:
		return t.TextMuted
	}
}

func clampPct(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 1 {
		return 1
	}
	return pct
}

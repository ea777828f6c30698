package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle    = lipgloss.NewStyle().Foreground(ColorText)
	negativeStyle = lipgloss.NewStyle().Foreground(ColorRed)
	mutedStyle    = lipgloss.NewStyle().Foreground(ColorTextMuted)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorRed)
	warnStyle     = lipgloss.NewStyle().Foreground(ColorOrange)
	dimStyle      = lipgloss.NewStyle().Foreground(ColorTextDim)
)

// separatorRow marks a horizontal rule inside Table.Rows.
const separatorRow = "---"

// Table represents a bordered text table for CLI output.
type Table struct {
	Title    string
	Headers  []string
	Rows     [][]string // a row of just "---" renders as a rule
	Widths   []int      // optional column widths, auto-calculated if nil
	TextCols int        // leading left-aligned columns; the rest are right-aligned numbers
}

func (t Table) columns() int {
	if len(t.Headers) > 0 {
		return len(t.Headers)
	}
	for _, row := range t.Rows {
		if !isSeparator(row) {
			return len(row)
		}
	}
	return 0
}

func (t Table) widths(n int) []int {
	widths := make([]int, n)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	grow := func(cells []string) {
		for i, cell := range cells {
			if i < n {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}
	grow(t.Headers)
	for _, row := range t.Rows {
		if !isSeparator(row) {
			grow(row)
		}
	}
	return widths
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == separatorRow
}

// rule draws one horizontal border line.
func rule(widths []int, left, mid, right string) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
}

// RenderTable renders a bordered table with headers and rows. Text columns
// are left-aligned; amount columns are right-aligned and negatives are red.
func RenderTable(t Table) string {
	n := t.columns()
	if n == 0 {
		return ""
	}
	textCols := max(t.TextCols, 1)
	widths := t.widths(n)
	bar := dimStyle.Render("│")

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(bar)
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[i], h)))
			b.WriteString(bar)
		}
		b.WriteString("\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if isSeparator(row) {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		b.WriteString(bar)
		for i := 0; i < n; i++ {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if i < textCols {
				b.WriteString(valueStyle.Render(fmt.Sprintf(" %-*s ", widths[i], cell)))
			} else {
				style := valueStyle
				if strings.HasPrefix(cell, "-") {
					style = negativeStyle
				}
				b.WriteString(style.Render(fmt.Sprintf(" %*s ", widths[i], cell)))
			}
			b.WriteString(bar)
		}
		b.WriteString("\n")
	}
	b.WriteString(rule(widths, "╰", "┴", "╯"))

	return b.String()
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := float64(current) / float64(total)
	if pct > 1 {
		pct = 1
	}

	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

// RenderSparkline generates a unicode block sparkline from a series of
// values, scaled between the series minimum and maximum.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo

	var b strings.Builder
	for _, v := range values {
		idx := len(blocks) / 2
		if span > 0 {
			idx = int((v - lo) / span * float64(len(blocks)-1))
		}
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders a labeled horizontal bar chart entry.
// Negative values render as an empty bar.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := int(value / maxValue * float64(maxWidth))
	if barLen < 0 {
		barLen = 0
	}
	if barLen > maxWidth {
		barLen = maxWidth
	}
	bar := strings.Repeat("█", barLen)
	return fmt.Sprintf("  %s %s", label, bar)
}

// RenderError renders a fatal dataset error line for stderr.
func RenderError(msg string) string {
	return errorStyle.Render("error: ") + msg
}

// RenderWarning renders a non-fatal notice.
func RenderWarning(msg string) string {
	return warnStyle.Render(msg)
}

// RenderMuted renders secondary text such as run statistics.
func RenderMuted(msg string) string {
	return mutedStyle.Render(msg)
}

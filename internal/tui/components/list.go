package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// ScrollOffset returns the first visible index so that cursor stays inside
// a window of visible rows starting near offset.
func ScrollOffset(cursor, offset, visible, total int) int {
	if visible < 1 {
		visible = 1
	}
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}
	if maxOff := total - visible; offset > maxOff {
		offset = maxOff
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// SelectList renders a window of items with the cursor row highlighted.
// It returns the body and the offset actually used.
func SelectList(items []string, cursor, offset, visible, width int) (string, int) {
	t := theme.Active

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(items) == 0 {
		return mutedStyle.Render("no matches"), 0
	}

	offset = ScrollOffset(cursor, offset, visible, len(items))
	end := offset + visible
	if end > len(items) {
		end = len(items)
	}

	var b strings.Builder
	for i := offset; i < end; i++ {
		marker := "  "
		style := rowStyle
		if i == cursor {
			marker = "▸ "
			style = selectedStyle
		}
		line := marker + Truncate(items[i], width-2)
		if pad := width - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		b.WriteString(style.Render(line))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if len(items) > visible {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(scrollHint(offset, end, len(items))))
	}
	return b.String(), offset
}

func scrollHint(from, to, total int) string {
	return fmt.Sprintf("%d-%d of %d", from+1, to, total)
}

// Truncate shortens s to limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

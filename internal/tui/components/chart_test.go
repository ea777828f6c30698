package components

import (
	"strings"
	"testing"

	"github.com/theirongolddev/ledgercast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func TestLineChartPlotsEveryPoint(t *testing.T) {
	theme.SetActive("flexoki-dark")

	values := []float64{10, 12, 9, 15, 20, 18, 22, 25, 21, 19, 24, 30}
	labels := make([]string, len(values))
	for i := range labels {
		labels[i] = "M" + string(rune('a'+i))
	}

	out := LineChart(values, labels, theme.Active.Revenue, 60, 8)
	lines := strings.Split(out, "\n")
	if len(lines) != 10 {
		t.Fatalf("line count = %d, want 10 (8 rows + axis + labels)", len(lines))
	}
	if got := strings.Count(out, "●"); got != len(values) {
		t.Fatalf("points = %d, want %d", got, len(values))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w > 60 {
			t.Fatalf("line %d width = %d, want <= 60", i, w)
		}
	}
	if !strings.Contains(lines[0], "30") {
		t.Fatalf("top row %q missing max label", lines[0])
	}
	if !strings.Contains(lines[7], "9") {
		t.Fatalf("bottom row %q missing min label", lines[7])
	}
}

func TestLineChartFlatAndNegative(t *testing.T) {
	theme.SetActive("flexoki-dark")

	flat := LineChart([]float64{5, 5, 5, 5}, nil, theme.Active.Revenue, 40, 6)
	if got := strings.Count(flat, "●"); got != 4 {
		t.Fatalf("flat points = %d, want 4", got)
	}

	neg := LineChart([]float64{-2000, -1000, 500}, nil, theme.Active.Expenditure, 40, 6)
	if !strings.Contains(neg, "-2k") {
		t.Fatalf("negative chart missing -2k label:\n%s", neg)
	}
}

func TestLineChartFallsBackToSparkline(t *testing.T) {
	theme.SetActive("flexoki-dark")

	out := LineChart([]float64{1, 2, 3}, nil, theme.Active.Revenue, 10, 3)
	if strings.Contains(out, "\n") {
		t.Fatalf("small chart should render a single-line sparkline, got %q", out)
	}
	if LineChart(nil, nil, theme.Active.Revenue, 60, 8) != "" {
		t.Fatal("empty series should render nothing")
	}
}

func TestLineChartSamplesWideSeries(t *testing.T) {
	theme.SetActive("flexoki-dark")

	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i)
	}
	out := LineChart(values, nil, theme.Active.Revenue, 40, 6)
	for i, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w > 40 {
			t.Fatalf("line %d width = %d, want <= 40", i, w)
		}
	}
}

func TestSparklineScalesToRange(t *testing.T) {
	theme.SetActive("flexoki-dark")

	out := Sparkline([]float64{100, 101, 102}, theme.Active.Revenue)
	if !strings.Contains(out, "▁") || !strings.Contains(out, "█") {
		t.Fatalf("Sparkline should span the full block range, got %q", out)
	}
	flat := Sparkline([]float64{7, 7}, theme.Active.Revenue)
	if !strings.Contains(flat, "▅▅") {
		t.Fatalf("flat Sparkline = %q, want middle blocks", flat)
	}
}

func TestFormatChartLabel(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.5, "0.50"},
		{42, "42"},
		{1500, "1.5k"},
		{2000, "2k"},
		{3_000_000, "3M"},
		{-1500, "-1.5k"},
	}
	for _, tt := range tests {
		if got := formatChartLabel(tt.in); got != tt.want {
			t.Errorf("formatChartLabel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBarChartIgnoresNegativeBars(t *testing.T) {
	theme.SetActive("flexoki-dark")

	out := BarChart([]float64{-5, 10, 20}, []string{"a", "b", "c"}, theme.Active.Revenue, 40, 6)
	if out == "" || !strings.Contains(out, "█") {
		t.Fatalf("BarChart should render positive bars, got %q", out)
	}
}

func TestColorForChange(t *testing.T) {
	theme.SetActive("flexoki-dark")
	if ColorForChange(1) != theme.Active.Positive {
		t.Fatal("positive delta should use Positive")
	}
	if ColorForChange(-1) != theme.Active.Negative {
		t.Fatal("negative delta should use Negative")
	}
	if ColorForChange(0) != theme.Active.TextMuted {
		t.Fatal("zero delta should use TextMuted")
	}
}

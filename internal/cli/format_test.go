package cli

import (
	"testing"
	"time"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{5, "5.00"},
		{-5, "-5.00"},
		{1234.5, "1,234.50"},
		{1234567.891, "1,234,567.89"},
		{-0.001, "0.00"},
		{999.999, "1,000.00"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12, "12"},
		{1234, "1.2K"},
		{-1234567, "-1.2M"},
		{2500000000, "2.5B"},
	}
	for _, tt := range tests {
		if got := FormatCompact(tt.in); got != tt.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMonth(t *testing.T) {
	d := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if got := FormatMonth(d); got != "Mar 2024" {
		t.Errorf("FormatMonth = %q, want Mar 2024", got)
	}
	if got := FormatMonthShort(d); got != "Mar 24" {
		t.Errorf("FormatMonthShort = %q, want Mar 24", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.in); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatChange(t *testing.T) {
	if got := FormatChange(100, 110); got != "+10.0%" {
		t.Errorf("FormatChange(100,110) = %q, want +10.0%%", got)
	}
	if got := FormatChange(-100, -150); got != "-50.0%" {
		t.Errorf("FormatChange(-100,-150) = %q, want -50.0%%", got)
	}
	if got := FormatChange(0, 5); got != "n/a" {
		t.Errorf("FormatChange(0,5) = %q, want n/a", got)
	}
}

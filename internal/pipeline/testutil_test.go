package pipeline

import (
	"strconv"
	"testing"
	"time"

	"github.com/theirongolddev/ledgercast/internal/model"
)

// exportTable builds a raw export: two header rows followed by body rows.
func exportTable(body ...[]string) model.RawTable {
	header := append([]string{"Cost Centre", "G/L Account"}, model.MonthFields...)
	table := model.RawTable{
		{"Ledger export", "FY2023"},
		header,
	}
	return append(table, body...)
}

// columnNames is the first line of an export file, consumed by the reader.
func columnNames() []string {
	return append([]string{"Cost Center", "G/L Account"}, model.MonthFields...)
}

// ledgerRow builds one 14-cell body row from numeric month values.
func ledgerRow(cc, acct string, months ...float64) []string {
	row := []string{cc, acct}
	for i := 0; i < model.MonthsPerYear; i++ {
		if i < len(months) {
			row = append(row, strconv.FormatFloat(months[i], 'f', -1, 64))
		} else {
			row = append(row, "")
		}
	}
	return row
}

// constRow builds a row with the same value in every month.
func constRow(cc, acct string, v float64) []string {
	months := make([]float64, model.MonthsPerYear)
	for i := range months {
		months[i] = v
	}
	return ledgerRow(cc, acct, months...)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

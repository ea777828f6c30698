// Package model defines domain types for ledgercast input tables and forecasts.
package model

import "time"

// MonthsPerYear is the number of month columns in a ledger export.
const MonthsPerYear = 12

// MonthFields are the canonical month column names, Jan..Dec.
var MonthFields = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Fields are the 14 canonical column names assigned to a cleaned export,
// left to right.
var Fields = append([]string{"cost_center", "account"}, MonthFields...)

// RawTable is an unprocessed export: positional rows of untyped cells.
// The first two rows are header metadata.
type RawTable [][]string

// Amount is a month value that may be missing.
type Amount struct {
	Value float64
	Valid bool // false when the source cell was not numeric
}

// CleanRow is one typed ledger line.
type CleanRow struct {
	CostCenter string
	Account    string
	Months     [MonthsPerYear]Amount
}

// SeriesKey identifies one time series.
type SeriesKey struct {
	CostCenter string
	Account    string
}

func (k SeriesKey) String() string {
	return k.CostCenter + "/" + k.Account
}

// InputSeries is the chronological monthly input to one model fit.
type InputSeries struct {
	Key      SeriesKey
	Start    time.Time // first of the first month, UTC
	Values   []float64
	Observed []bool // Observed[i] is false when every contributing cell was missing
}

// Len returns the number of monthly points.
func (s InputSeries) Len() int {
	return len(s.Values)
}

// LastMonth returns the first-of-month date of the final point.
func (s InputSeries) LastMonth() time.Time {
	return s.Start.AddDate(0, len(s.Values)-1, 0)
}

// ObservedCount returns how many points came from at least one numeric cell.
func (s InputSeries) ObservedCount() int {
	n := 0
	for _, ok := range s.Observed {
		if ok {
			n++
		}
	}
	return n
}

// HasObservations reports whether any point came from a numeric cell.
// A series built without observation flags counts as observed.
func (s InputSeries) HasObservations() bool {
	if s.Observed == nil {
		return len(s.Values) > 0
	}
	return s.ObservedCount() > 0
}

// Dataset names for the two ledger exports.
const (
	DatasetRevenue     = "revenue"
	DatasetExpenditure = "expenditure"
)

// Datasets lists the dataset names in display order.
var Datasets = []string{DatasetRevenue, DatasetExpenditure}

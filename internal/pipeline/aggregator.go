// Package pipeline cleans ledger exports, fits per-series forecasts, and
// rolls the results up by cost center and in total.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/ledgercast/internal/model"

	"github.com/shopspring/decimal"
)

type dateCenter struct {
	date   time.Time
	center string
}

// RollUpCostCenters sums forecasts across accounts for each
// (date, cost center) pair. Output is sorted by date, then cost center.
func RollUpCostCenters(points model.ForecastTable) []model.CostCenterForecast {
	sums := make(map[dateCenter]decimal.Decimal)
	for _, p := range points {
		k := dateCenter{date: p.Date, center: p.CostCenter}
		sums[k] = sums[k].Add(decimal.NewFromFloat(p.Forecast))
	}

	out := make([]model.CostCenterForecast, 0, len(sums))
	for k, v := range sums {
		out = append(out, model.CostCenterForecast{
			Date:       k.date,
			CostCenter: k.center,
			Forecast:   v.InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CostCenter < out[j].CostCenter
	})
	return out
}

// RollUpTotal sums forecasts across all series for each date, sorted
// ascending.
func RollUpTotal(points model.ForecastTable) []model.TotalForecast {
	sums := make(map[time.Time]decimal.Decimal)
	for _, p := range points {
		sums[p.Date] = sums[p.Date].Add(decimal.NewFromFloat(p.Forecast))
	}

	out := make([]model.TotalForecast, 0, len(sums))
	for d, v := range sums {
		out = append(out, model.TotalForecast{Date: d, Forecast: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// FilterByAccount returns the points whose account contains the given
// substring, case-insensitively. An empty filter returns every point.
func FilterByAccount(points model.ForecastTable, account string) model.ForecastTable {
	if account == "" {
		return points
	}
	var result model.ForecastTable
	for _, p := range points {
		if containsIgnoreCase(p.Account, account) {
			result = append(result, p)
		}
	}
	return result
}

// FilterByCostCenter returns the points whose cost center contains the
// given substring, case-insensitively.
func FilterByCostCenter(points model.ForecastTable, center string) model.ForecastTable {
	if center == "" {
		return points
	}
	var result model.ForecastTable
	for _, p := range points {
		if containsIgnoreCase(p.CostCenter, center) {
			result = append(result, p)
		}
	}
	return result
}

// SelectAccount returns the points whose account equals account exactly.
func SelectAccount(points model.ForecastTable, account string) model.ForecastTable {
	return selectWhere(points, func(p model.ForecastPoint) bool { return p.Account == account })
}

// SelectCostCenter returns the points whose cost center equals center
// exactly.
func SelectCostCenter(points model.ForecastTable, center string) model.ForecastTable {
	return selectWhere(points, func(p model.ForecastPoint) bool { return p.CostCenter == center })
}

func selectWhere(points model.ForecastTable, keep func(model.ForecastPoint) bool) model.ForecastTable {
	var result model.ForecastTable
	for _, p := range points {
		if keep(p) {
			result = append(result, p)
		}
	}
	return result
}

// SumByDate collapses points into one value per date, sorted ascending.
// Used to chart a filtered account across cost centers.
func SumByDate(points model.ForecastTable) []model.TotalForecast {
	return RollUpTotal(points)
}

// Accounts lists distinct accounts in order of first appearance.
func Accounts(points model.ForecastTable) []string {
	return distinct(points, func(p model.ForecastPoint) string { return p.Account })
}

// CostCenters lists distinct cost centers in order of first appearance.
func CostCenters(points model.ForecastTable) []string {
	return distinct(points, func(p model.ForecastPoint) string { return p.CostCenter })
}

func distinct(points model.ForecastTable, field func(model.ForecastPoint) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range points {
		v := field(p)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MatchNames returns the names containing query, case-insensitively.
func MatchNames(names []string, query string) []string {
	if query == "" {
		return names
	}
	var out []string
	for _, n := range names {
		if containsIgnoreCase(n, query) {
			out = append(out, n)
		}
	}
	return out
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

package model

import "time"

// ForecastPoint is one projected month for one series.
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	CostCenter string    `json:"cost_center"`
	Account    string    `json:"account"`
	Forecast   float64   `json:"forecast"`
}

// Key returns the series identity of the point.
func (p ForecastPoint) Key() SeriesKey {
	return SeriesKey{CostCenter: p.CostCenter, Account: p.Account}
}

// ForecastTable holds every point of every successfully modeled series.
type ForecastTable []ForecastPoint

// CostCenterForecast is the forecast summed across accounts for one
// (date, cost center) pair.
type CostCenterForecast struct {
	Date       time.Time `json:"date"`
	CostCenter string    `json:"cost_center"`
	Forecast   float64   `json:"forecast"`
}

// TotalForecast is the forecast summed across all series for one date.
type TotalForecast struct {
	Date     time.Time `json:"date"`
	Forecast float64   `json:"forecast"`
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	Rows     int           `json:"rows"`
	Unkeyed  int           `json:"unkeyed"` // blank cost center or account, not grouped
	Series   int           `json:"series"`
	Fitted   int           `json:"fitted"`
	Skipped  int           `json:"skipped"` // below the minimum length
	Failed   int           `json:"failed"`  // fit or forecast error, dropped
	Duration time.Duration `json:"duration_ns"`
}

// Result is the full output of one dataset run.
type Result struct {
	Dataset     string               `json:"dataset"`
	Forecasts   ForecastTable        `json:"forecasts"`
	CostCenters []CostCenterForecast `json:"cost_centers"`
	Total       []TotalForecast      `json:"total"`
	Stats       RunStats             `json:"stats"`
}

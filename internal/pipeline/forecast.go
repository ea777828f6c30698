package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/ledgercast/internal/arima"
	"github.com/theirongolddev/ledgercast/internal/model"

	"go.uber.org/zap"
)

const (
	// Horizon is the number of months forecast for every series.
	Horizon = 12

	// MinSeriesLength is the shortest series the engine will model.
	// Cleaned exports always yield 12-point series, so this only guards
	// variable-length input passed to ForecastSeries directly.
	MinSeriesLength = 6

	// DefaultBaseYear anchors the first input month of every dataset.
	DefaultBaseYear = 2023

	// DefaultFitTimeout bounds a single series fit.
	DefaultFitTimeout = 5 * time.Second
)

// ProgressFunc is called as series finish fitting.
// done is the number of series resolved so far, total is the series count.
type ProgressFunc func(done, total int)

// Options controls a forecast run.
type Options struct {
	BaseYear   int
	Workers    int           // <1 means GOMAXPROCS
	FitTimeout time.Duration // <=0 disables the per-series timeout
	Logger     *zap.Logger
	Progress   ProgressFunc
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BaseYear:   DefaultBaseYear,
		FitTimeout: DefaultFitTimeout,
	}
}

// SeriesStatus is the outcome of modeling one series.
type SeriesStatus int

const (
	StatusFitted  SeriesStatus = iota
	StatusSkipped              // shorter than MinSeriesLength
	StatusFailed               // fit or forecast error
)

func (s SeriesStatus) String() string {
	switch s {
	case StatusFitted:
		return "fitted"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// SeriesResult holds the outcome of one series. Points is only set when
// Status is StatusFitted.
type SeriesResult struct {
	Key    model.SeriesKey
	Status SeriesStatus
	Points []model.ForecastPoint
	Err    error
}

// BaseMonth returns January 1st of year in UTC.
func BaseMonth(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// GroupSeries collapses rows sharing a (cost center, account) key into one
// monthly series by summing each month across rows, skipping missing
// cells. Rows with a blank cost center or account belong to no series.
// Series start at start and are returned sorted by key.
func GroupSeries(rows []model.CleanRow, start time.Time) []model.InputSeries {
	index := make(map[model.SeriesKey]int)
	var series []model.InputSeries

	for _, r := range rows {
		if !hasKey(r) {
			continue
		}
		key := model.SeriesKey{CostCenter: r.CostCenter, Account: r.Account}
		i, ok := index[key]
		if !ok {
			i = len(series)
			index[key] = i
			series = append(series, model.InputSeries{
				Key:      key,
				Start:    start,
				Values:   make([]float64, model.MonthsPerYear),
				Observed: make([]bool, model.MonthsPerYear),
			})
		}

		s := &series[i]
		for m, amt := range r.Months {
			if !amt.Valid {
				continue
			}
			s.Values[m] += amt.Value
			s.Observed[m] = true
		}
	}

	sort.Slice(series, func(i, j int) bool {
		a, b := series[i].Key, series[j].Key
		if a.CostCenter != b.CostCenter {
			return a.CostCenter < b.CostCenter
		}
		return a.Account < b.Account
	})
	return series
}

// hasKey reports whether r names both a cost center and an account.
// Subtotal lines in exports usually leave one of them blank.
func hasKey(r model.CleanRow) bool {
	return strings.TrimSpace(r.CostCenter) != "" && strings.TrimSpace(r.Account) != ""
}

func countUnkeyed(rows []model.CleanRow) int {
	n := 0
	for _, r := range rows {
		if !hasKey(r) {
			n++
		}
	}
	return n
}

// ForecastSeries fits ARIMA(1,1,1) to s and projects Horizon months past
// its last month. Failures are reported in the result, never returned.
func ForecastSeries(ctx context.Context, s model.InputSeries) SeriesResult {
	res := SeriesResult{Key: s.Key}

	if s.Len() < MinSeriesLength {
		res.Status = StatusSkipped
		return res
	}
	if !s.HasObservations() {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("no numeric observations")
		return res
	}

	m, err := arima.Fit(ctx, s.Values)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("fitting %s: %w", arima.Default, err)
		return res
	}
	values, err := m.Forecast(Horizon)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("forecasting: %w", err)
		return res
	}

	last := s.LastMonth()
	res.Points = make([]model.ForecastPoint, len(values))
	for h, v := range values {
		res.Points[h] = model.ForecastPoint{
			Date:       last.AddDate(0, h+1, 0),
			CostCenter: s.Key.CostCenter,
			Account:    s.Key.Account,
			Forecast:   v,
		}
	}
	res.Status = StatusFitted
	return res
}

// FitAll models every series on a bounded worker pool. results[i]
// corresponds to series[i].
func FitAll(ctx context.Context, series []model.InputSeries, opts Options) []SeriesResult {
	results := make([]SeriesResult, len(series))
	if len(series) == 0 {
		return results
	}

	numWorkers := opts.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(series) {
		numWorkers = len(series)
	}

	work := make(chan int, len(series))
	for i := range series {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	var processed atomic.Int64

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = fitOne(ctx, series[idx], opts.FitTimeout)
				n := processed.Add(1)
				if opts.Progress != nil {
					opts.Progress(int(n), len(series))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// fitOne runs ForecastSeries under the per-series timeout and turns a
// panic in the fitter into a failed result.
func fitOne(ctx context.Context, s model.InputSeries, timeout time.Duration) (res SeriesResult) {
	defer func() {
		if r := recover(); r != nil {
			res = SeriesResult{Key: s.Key, Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return ForecastSeries(ctx, s)
}

// Forecast runs the full pipeline on one raw export: clean, group, fit
// every series, and roll the forecasts up by cost center and in total.
func Forecast(ctx context.Context, raw model.RawTable, opts Options) (*model.Result, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BaseYear == 0 {
		opts.BaseYear = DefaultBaseYear
	}

	rows, _, err := Clean(raw)
	if err != nil {
		return nil, err
	}

	series := GroupSeries(rows, BaseMonth(opts.BaseYear))
	results := FitAll(ctx, series, opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &model.Result{
		Stats: model.RunStats{Rows: len(rows), Unkeyed: countUnkeyed(rows), Series: len(series)},
	}
	if result.Stats.Unkeyed > 0 {
		log.Debug("rows without a series key ignored", zap.Int("rows", result.Stats.Unkeyed))
	}
	for _, r := range results {
		switch r.Status {
		case StatusFitted:
			result.Stats.Fitted++
			result.Forecasts = append(result.Forecasts, r.Points...)
		case StatusSkipped:
			result.Stats.Skipped++
			log.Debug("series skipped", zap.Stringer("series", r.Key))
		default:
			result.Stats.Failed++
			log.Debug("series dropped", zap.Stringer("series", r.Key), zap.Error(r.Err))
		}
	}

	if len(result.Forecasts) == 0 {
		return nil, fmt.Errorf("%w (%d series: %d failed, %d too short)",
			ErrNoForecasts, len(series), result.Stats.Failed, result.Stats.Skipped)
	}

	result.CostCenters = RollUpCostCenters(result.Forecasts)
	result.Total = RollUpTotal(result.Forecasts)
	result.Stats.Duration = time.Since(start)

	log.Info("forecast complete",
		zap.Int("rows", result.Stats.Rows),
		zap.Int("series", result.Stats.Series),
		zap.Int("fitted", result.Stats.Fitted),
		zap.Int("failed", result.Stats.Failed),
		zap.Duration("elapsed", result.Stats.Duration),
	)
	return result, nil
}

// RunDataset runs Forecast for a named dataset. Fatal errors are wrapped
// in a *DatasetError carrying the name.
func RunDataset(ctx context.Context, name string, raw model.RawTable, opts Options) (*model.Result, error) {
	if opts.Logger != nil {
		opts.Logger = opts.Logger.With(zap.String("dataset", name))
	}
	result, err := Forecast(ctx, raw, opts)
	if err != nil {
		return nil, &DatasetError{Dataset: name, Err: err}
	}
	result.Dataset = name
	return result, nil
}

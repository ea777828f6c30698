// Package arima fits ARIMA(1,1,1) models to short monthly series and
// projects them forward.
//
// The model is an ARMA(1,1) without constant on the first difference of
// the series:
//
//	w_t = y_t - y_{t-1}
//	w_t = phi*w_{t-1} + e_t + theta*e_{t-1}
//
// Parameters are estimated by conditional sum of squares with the
// pre-sample values w_{-1} and e_{-1} set to zero. phi and theta are kept
// inside (-1, 1) so the fitted model is stationary and invertible. The
// differences are divided by their largest magnitude before estimation,
// which leaves phi and theta unchanged and keeps the sum of squares finite
// for very large amounts.
package arima

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by Fit and Forecast.
var (
	ErrUnsupportedOrder = errors.New("unsupported ARIMA order")
	ErrTooShort         = errors.New("series too short")
	ErrNonFinite        = errors.New("non-finite value")
)

const (
	minPoints       = 3 // two differences are needed to estimate anything
	paramBound      = 0.99
	maxEvaluations  = 4000
	convergeEpsilon = 1e-10
)

// Order is the (p, d, q) order of an ARIMA model.
type Order struct {
	P, D, Q int
}

// Default is the only order this package fits.
var Default = Order{P: 1, D: 1, Q: 1}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Estimator fits models of a fixed order.
type Estimator struct {
	order Order
}

// New returns an estimator for the given order.
func New(order Order) (*Estimator, error) {
	if order != Default {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOrder, order)
	}
	return &Estimator{order: order}, nil
}

// Model is a fitted ARIMA(1,1,1).
type Model struct {
	Order  Order
	Phi    float64
	Theta  float64
	Sigma2 float64
	NObs   int // number of differenced observations used in the fit

	last      float64 // final level of the input series
	lastDiff  float64
	lastResid float64
}

// Fit estimates an ARIMA(1,1,1) for y using the default estimator.
func Fit(ctx context.Context, y []float64) (*Model, error) {
	est, _ := New(Default)
	return est.Fit(ctx, y)
}

// Fit estimates the model parameters for y. The context bounds the
// optimizer's runtime; an expired context yields its error.
func (e *Estimator) Fit(ctx context.Context, y []float64) (*Model, error) {
	if len(y) < minPoints {
		return nil, fmt.Errorf("%w: %d points, need %d", ErrTooShort, len(y), minPoints)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := difference(y)
	if !finite(w...) {
		return nil, fmt.Errorf("%w in first differences", ErrNonFinite)
	}
	scale := maxAbs(w)
	if scale == 0 {
		scale = 1
	}
	ws := make([]float64, len(w))
	for i, v := range w {
		ws[i] = v / scale
	}

	problem := optimize.Problem{Func: objective(ctx, ws)}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   convergeEpsilon,
			Relative:   convergeEpsilon,
			Iterations: 50,
		},
	}
	if deadline, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(deadline)
		if settings.Runtime <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	res, err := optimize.Minimize(problem, initialGuess(ws), settings, &optimize.NelderMead{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if res == nil {
		return nil, fmt.Errorf("minimizing sum of squares: %w", err)
	}
	if err != nil && !acceptableStatus(res.Status) {
		return nil, fmt.Errorf("minimizing sum of squares (%s): %w", res.Status, err)
	}

	phi, theta := transform(res.X)
	resid := residuals(ws, phi, theta)

	sse := 0.0
	for _, r := range resid {
		sse += r * r
	}

	// Sigma2 is in squared input units and may overflow to +Inf for
	// amounts near the float64 limit; the forecast does not use it.
	m := &Model{
		Order:     e.order,
		Phi:       phi,
		Theta:     theta,
		Sigma2:    sse / float64(len(w)) * scale * scale,
		NObs:      len(w),
		last:      y[len(y)-1],
		lastDiff:  w[len(w)-1],
		lastResid: resid[len(resid)-1] * scale,
	}
	if !finite(m.Phi, m.Theta, m.lastResid) || math.IsNaN(m.Sigma2) {
		return nil, fmt.Errorf("%w in fitted parameters", ErrNonFinite)
	}
	return m, nil
}

// Forecast projects the series steps months past its last observation.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("forecast steps must be positive, got %d", steps)
	}

	out := make([]float64, steps)
	level := m.last
	prevDiff := m.lastDiff
	for h := range out {
		next := m.Phi * prevDiff
		if h == 0 {
			next += m.Theta * m.lastResid
		}
		level += next
		if !finite(level) {
			return nil, fmt.Errorf("%w at forecast step %d", ErrNonFinite, h+1)
		}
		out[h] = level
		prevDiff = next
	}
	return out, nil
}

// LogLikelihood returns the Gaussian log-likelihood implied by Sigma2.
// A perfect fit (Sigma2 == 0) yields +Inf.
func (m *Model) LogLikelihood() float64 {
	if m.Sigma2 == 0 {
		return math.Inf(1)
	}
	n := float64(m.NObs)
	return -n / 2 * (math.Log(2*math.Pi*m.Sigma2) + 1)
}

// AIC returns the Akaike information criterion (phi, theta, sigma2).
func (m *Model) AIC() float64 {
	return 2*3 - 2*m.LogLikelihood()
}

func difference(y []float64) []float64 {
	w := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		w[i-1] = y[i] - y[i-1]
	}
	return w
}

// transform maps unconstrained optimizer coordinates into (-paramBound, paramBound).
func transform(x []float64) (phi, theta float64) {
	return paramBound * math.Tanh(x[0]), paramBound * math.Tanh(x[1])
}

func inverse(v float64) float64 {
	v /= paramBound
	if v >= 1 {
		v = 1 - 1e-6
	}
	if v <= -1 {
		v = -1 + 1e-6
	}
	return math.Atanh(v)
}

// initialGuess seeds phi with the lag-1 autocorrelation of the differences.
func initialGuess(w []float64) []float64 {
	phi0 := 0.0
	if len(w) > 2 {
		r := stat.Correlation(w[:len(w)-1], w[1:], nil)
		if !math.IsNaN(r) {
			phi0 = r
		}
	}
	return []float64{inverse(phi0), 0}
}

// objective is the conditional sum of squares over optimizer coordinates.
// Once ctx is done every evaluation is +Inf, so the optimizer stops
// improving and Fit reports the context error.
func objective(ctx context.Context, w []float64) func(x []float64) float64 {
	return func(x []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		phi, theta := transform(x)
		return sumSquares(w, phi, theta)
	}
}

func maxAbs(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		m = max(m, math.Abs(v))
	}
	return m
}

func sumSquares(w []float64, phi, theta float64) float64 {
	var sse, prevW, prevE float64
	for _, v := range w {
		e := v - phi*prevW - theta*prevE
		sse += e * e
		prevW, prevE = v, e
	}
	return sse
}

func residuals(w []float64, phi, theta float64) []float64 {
	resid := make([]float64, len(w))
	var prevW, prevE float64
	for i, v := range w {
		e := v - phi*prevW - theta*prevE
		resid[i] = e
		prevW, prevE = v, e
	}
	return resid
}

func acceptableStatus(s optimize.Status) bool {
	switch s {
	case optimize.FunctionEvaluationLimit, optimize.IterationLimit:
		return true
	}
	return false
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

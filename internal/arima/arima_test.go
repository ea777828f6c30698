package arima

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestFit_ConstantSeriesForecastsLastValue(t *testing.T) {
	y := make([]float64, 12)
	for i := range y {
		y[i] = 150
	}

	m, err := Fit(context.Background(), y)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	fc, err := m.Forecast(12)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(fc) != 12 {
		t.Fatalf("len(forecast) = %d, want 12", len(fc))
	}
	for i, v := range fc {
		if math.Abs(v-150) > 1e-9 {
			t.Errorf("forecast[%d] = %.6f, want 150", i, v)
		}
	}
	if m.Sigma2 != 0 {
		t.Errorf("Sigma2 = %g, want 0", m.Sigma2)
	}
}

func TestFit_LinearTrendKeepsRising(t *testing.T) {
	y := make([]float64, 12)
	for i := range y {
		y[i] = 10 + 5*float64(i)
	}

	m, err := Fit(context.Background(), y)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	fc, err := m.Forecast(12)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	first := fc[0] - y[len(y)-1]
	if first < 4 || first > 6 {
		t.Errorf("first step increment = %.3f, want within [4, 6]", first)
	}
	for i := 1; i < len(fc); i++ {
		if fc[i] <= fc[i-1] {
			t.Fatalf("forecast not increasing at %d: %.3f <= %.3f", i, fc[i], fc[i-1])
		}
	}
}

func TestFit_ParametersStayInBounds(t *testing.T) {
	y := []float64{120, 95, 143, 110, 160, 101, 155, 98, 170, 130, 149, 88}

	m, err := Fit(context.Background(), y)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(m.Phi) >= 1 || math.Abs(m.Theta) >= 1 {
		t.Fatalf("phi=%.4f theta=%.4f, want both inside (-1, 1)", m.Phi, m.Theta)
	}
	if m.NObs != len(y)-1 {
		t.Errorf("NObs = %d, want %d", m.NObs, len(y)-1)
	}
	if m.Sigma2 <= 0 {
		t.Errorf("Sigma2 = %g, want > 0", m.Sigma2)
	}
	if math.IsNaN(m.AIC()) {
		t.Error("AIC is NaN")
	}
}

func TestFit_Errors(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		want error
	}{
		{"empty", nil, ErrTooShort},
		{"two points", []float64{1, 2}, ErrTooShort},
		{"nan", []float64{1, math.NaN(), 3, 4}, ErrNonFinite},
		{"inf", []float64{1, 2, math.Inf(1), 4}, ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(context.Background(), tt.y)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFit_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fit(ctx, []float64{1, 2, 3, 4, 5, 6})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNew_RejectsOtherOrders(t *testing.T) {
	if _, err := New(Order{P: 2, D: 1, Q: 1}); !errors.Is(err, ErrUnsupportedOrder) {
		t.Fatalf("err = %v, want ErrUnsupportedOrder", err)
	}
	if _, err := New(Default); err != nil {
		t.Fatalf("New(Default): %v", err)
	}
}

func TestForecast_RejectsNonPositiveSteps(t *testing.T) {
	m, err := Fit(context.Background(), []float64{3, 4, 5, 7, 6})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := m.Forecast(0); err == nil {
		t.Fatal("Forecast(0) returned nil error")
	}
}

func TestFit_LargeMagnitudes(t *testing.T) {
	small := []float64{3, 5, 4, 6, 7, 6, 8, 9, 8, 10, 12, 11}
	large := make([]float64, len(small))
	for i, v := range small {
		large[i] = v * 1e160
	}

	ms, err := Fit(context.Background(), small)
	if err != nil {
		t.Fatalf("Fit(small): %v", err)
	}
	ml, err := Fit(context.Background(), large)
	if err != nil {
		t.Fatalf("Fit(large): %v", err)
	}
	if math.Abs(ms.Phi-ml.Phi) > 1e-4 || math.Abs(ms.Theta-ml.Theta) > 1e-4 {
		t.Errorf("large fit phi,theta = %.6f,%.6f, want %.6f,%.6f", ml.Phi, ml.Theta, ms.Phi, ms.Theta)
	}

	fs, _ := ms.Forecast(12)
	fl, err := ml.Forecast(12)
	if err != nil {
		t.Fatalf("Forecast(large): %v", err)
	}
	for i := range fl {
		if got := fl[i] / 1e160; math.Abs(got-fs[i]) > 1e-3*math.Max(1, math.Abs(fs[i])) {
			t.Errorf("forecast[%d] = %g, want %g x 1e160", i, fl[i], fs[i])
		}
	}
}

func TestObjectiveStopsWhenContextDone(t *testing.T) {
	w := []float64{1, -0.5, 0.25, 0.1}
	ctx, cancel := context.WithCancel(context.Background())
	f := objective(ctx, w)

	x := []float64{0.2, 0.1}
	if v := f(x); math.IsInf(v, 1) || math.IsNaN(v) {
		t.Fatalf("objective before cancel = %v, want finite", v)
	}
	cancel()
	if v := f(x); !math.IsInf(v, 1) {
		t.Errorf("objective after cancel = %v, want +Inf", v)
	}
}

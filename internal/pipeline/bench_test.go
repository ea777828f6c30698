package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/theirongolddev/ledgercast/internal/model"
)

// benchTable builds an export with centers x accounts series.
func benchTable(centers, accounts int) model.RawTable {
	var body [][]string
	for c := 0; c < centers; c++ {
		for a := 0; a < accounts; a++ {
			months := make([]float64, model.MonthsPerYear)
			for m := range months {
				months[m] = float64(1000 + 37*c + 11*a + (m*(a+3))%17)
			}
			body = append(body, ledgerRow(fmt.Sprintf("CC%03d", c), fmt.Sprintf("%d", 4000+a), months...))
		}
	}
	return exportTable(body...)
}

func BenchmarkClean(b *testing.B) {
	raw := benchTable(50, 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Clean(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkForecastSeries(b *testing.B) {
	s := model.InputSeries{
		Start:  BaseMonth(DefaultBaseYear),
		Values: []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 16, 15, 17},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := ForecastSeries(context.Background(), s); res.Status != StatusFitted {
			b.Fatal(res.Err)
		}
	}
}

func BenchmarkForecast(b *testing.B) {
	raw := benchTable(20, 20)
	opts := DefaultOptions()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Forecast(context.Background(), raw, opts); err != nil {
			b.Fatal(err)
		}
	}
}

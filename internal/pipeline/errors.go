package pipeline

import "errors"

// Fatal pipeline errors. Cell coercion and per-series fit failures are
// absorbed and never surface as errors.
var (
	// ErrInputShape means the raw table cannot be interpreted as a ledger
	// export (missing header rows or fewer than 14 columns).
	ErrInputShape = errors.New("malformed input table")

	// ErrNoForecasts means no series survived to aggregation.
	ErrNoForecasts = errors.New("no series could be forecast")

	// ErrNoInput means a dataset has no input file configured.
	ErrNoInput = errors.New("no input file configured")
)

// DatasetError attributes a fatal pipeline error to a named dataset.
type DatasetError struct {
	Dataset string
	Err     error
}

func (e *DatasetError) Error() string {
	return e.Dataset + ": " + e.Err.Error()
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

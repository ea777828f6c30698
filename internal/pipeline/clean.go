package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/ledgercast/internal/model"

	"github.com/shopspring/decimal"
)

// HeaderRows is the number of leading metadata rows in every export.
const HeaderRows = 2

// Clean drops the header rows of raw, assigns the canonical columns, and
// coerces the month cells to numbers. It returns the typed rows and the
// month field names. Non-numeric cells become missing; only a table that
// does not have the export's shape is an error.
func Clean(raw model.RawTable) ([]model.CleanRow, []string, error) {
	if len(raw) < HeaderRows {
		return nil, nil, fmt.Errorf("%w: %d rows, expected %d header rows", ErrInputShape, len(raw), HeaderRows)
	}

	body := raw[HeaderRows:]
	rows := make([]model.CleanRow, 0, len(body))
	for i, cells := range body {
		if len(cells) < len(model.Fields) {
			return nil, nil, fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrInputShape, i+HeaderRows+1, len(cells), len(model.Fields))
		}

		row := model.CleanRow{
			CostCenter: strings.TrimSpace(cells[0]),
			Account:    strings.TrimSpace(cells[1]),
		}
		for m := range row.Months {
			row.Months[m] = ParseAmount(cells[2+m])
		}
		rows = append(rows, row)
	}

	months := make([]string, len(model.MonthFields))
	copy(months, model.MonthFields)
	return rows, months, nil
}

// ParseAmount coerces one export cell to a number. Beyond plain decimals
// it also accepts thousands separators, a leading currency sign and
// accounting parentheses, which spreadsheet exports often carry; a strict
// numeric coercion would turn those cells into missing values. Anything
// else that does not parse is missing.
func ParseAmount(cell string) model.Amount {
	s := strings.TrimSpace(cell)
	if s == "" {
		return model.Amount{}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.Replace(s, "$", "", 1)
	s = strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return model.Amount{}
	}
	if negative {
		d = d.Neg()
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) {
		return model.Amount{}
	}
	return model.Amount{Value: v, Valid: true}
}

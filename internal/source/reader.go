// Package source reads ledger exports (CSV and XLSX) into raw tables.
package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/theirongolddev/ledgercast/internal/model"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile reads the export at path into a raw table, choosing the reader
// from the file extension. Unless opts.NoHeader is set, the column-name
// line is consumed and the table starts at the second line of the file.
func ReadFile(path string, opts Options) (model.RawTable, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var table model.RawTable
	switch format {
	case FormatXLSX:
		table, err = ReadXLSX(f, opts)
	default:
		table, err = ReadCSV(f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !opts.NoHeader && len(table) > 0 {
		table = table[1:]
	}
	return table, nil
}

// ReadCSV parses delimited text. Exporters often drop trailing empty
// cells, so every row is padded with empty strings to the widest row.
// Quoting is lenient because ledger exports are rarely strict RFC 4180.
func ReadCSV(r io.Reader, opts Options) (model.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	text, err := decodeText(data, opts.Encoding)
	if err != nil {
		return nil, err
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(text)
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return padRows(records), nil
}

// padRows extends every row with empty cells to the width of the widest.
func padRows(rows [][]string) model.RawTable {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	table := make(model.RawTable, len(rows))
	for i, row := range rows {
		if len(row) == width {
			table[i] = row
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		table[i] = padded
	}
	return table
}

// decodeText returns UTF-8 text with any byte order mark removed.
func decodeText(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingLatin1:
		return latin1ToUTF8(data)
	case EncodingUTF8:
		return bytes.TrimPrefix(data, utf8BOM), nil
	case EncodingAuto:
		data = bytes.TrimPrefix(data, utf8BOM)
		if utf8.Valid(data) {
			return data, nil
		}
		return latin1ToUTF8(data)
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}

func latin1ToUTF8(data []byte) ([]byte, error) {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decoding latin1: %w", err)
	}
	return out, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the first
// non-empty line outside quotes, defaulting to ','.
func sniffDelimiter(text []byte) rune {
	for _, line := range bytes.Split(text, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		counts := map[rune]int{}
		inQuotes := false
		for _, c := range string(line) {
			switch {
			case c == '"':
				inQuotes = !inQuotes
			case !inQuotes && (c == ',' || c == ';' || c == '\t'):
				counts[c]++
			}
		}

		best, bestN := ',', counts[',']
		for _, c := range []rune{';', '\t'} {
			if counts[c] > bestN {
				best, bestN = c, counts[c]
			}
		}
		return best
	}
	return ','
}

// ReadXLSX reads one worksheet. GetRows drops trailing empty cells, so
// every row is padded with empty strings to the widest row in the sheet.
func ReadXLSX(r io.Reader, opts Options) (model.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return padRows(rows), nil
}

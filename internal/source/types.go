package source

import "errors"

// Format is the container format of an input export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Text encodings accepted for CSV input.
const (
	EncodingAuto   = ""
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Options controls how an export is read.
type Options struct {
	Sheet     string // xlsx sheet name; empty selects the first sheet
	Encoding  string // csv text encoding; empty detects utf-8 vs latin1
	Delimiter rune   // csv field separator; zero sniffs ',', ';' or tab

	// NoHeader marks a file without a column-name line. By default the
	// first line of the file holds column names and is not part of the
	// table.
	NoHeader bool
}

// Key returns a stable string form of the options, used to invalidate
// cached tables read with different settings.
func (o Options) Key() string {
	d := ""
	if o.Delimiter != 0 {
		d = string(o.Delimiter)
	}
	hdr := "1"
	if o.NoHeader {
		hdr = "0"
	}
	return "sheet=" + o.Sheet + ";enc=" + o.Encoding + ";delim=" + d + ";hdr=" + hdr
}

// DiscoveredFile is a candidate export found by Discover.
type DiscoveredFile struct {
	Path    string
	Dataset string // model.DatasetRevenue, model.DatasetExpenditure, or ""
	Format  Format
}

package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/theirongolddev/ledgercast/internal/model"
)

// Dataset name hints matched against file names, lowercase.
var datasetHints = map[string][]string{
	model.DatasetRevenue:     {"revenue", "income", "sales"},
	model.DatasetExpenditure: {"expenditure", "expense", "costs", "spend"},
}

// Discover lists the CSV and XLSX files directly inside dir and guesses
// which dataset each one holds from its file name. Files are returned
// sorted by path.
func Discover(dir string) ([]DiscoveredFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []DiscoveredFile
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		format, err := DetectFormat(path)
		if err != nil {
			continue
		}
		files = append(files, DiscoveredFile{
			Path:    path,
			Dataset: ClassifyName(e.Name()),
			Format:  format,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ClassifyName returns the dataset a file name suggests, or "".
func ClassifyName(name string) string {
	lower := strings.ToLower(filepath.Base(name))
	for _, ds := range model.Datasets {
		for _, hint := range datasetHints[ds] {
			if strings.Contains(lower, hint) {
				return ds
			}
		}
	}
	return ""
}

// Pick returns the first discovered file for the dataset, if any.
func Pick(files []DiscoveredFile, dataset string) (DiscoveredFile, bool) {
	for _, f := range files {
		if f.Dataset == dataset {
			return f, true
		}
	}
	return DiscoveredFile{}, false
}

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

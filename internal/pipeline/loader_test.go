package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/ledgercast/internal/source"
	"github.com/theirongolddev/ledgercast/internal/store"
)

func writeExport(t *testing.T, dir, name string, body ...[]string) string {
	t.Helper()
	lines := []string{strings.Join(columnNames(), ",")}
	for _, row := range exportTable(body...) {
		lines = append(lines, strings.Join(row, ","))
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunAll_IndependentDatasets(t *testing.T) {
	dir := t.TempDir()
	rev := writeExport(t, dir, "revenue.csv", constRow("CC100", "4000", 100), constRow("CC100", "4000", 50))
	exp := writeExport(t, dir, "expenditure.csv") // header rows only

	outcomes := RunAll(context.Background(), []Dataset{
		{Name: "revenue", Path: rev},
		{Name: "expenditure", Path: exp},
		{Name: "budget"},
	}, Loader{}, DefaultOptions())

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[0].Result == nil {
		t.Fatalf("revenue: unexpected error: %v", outcomes[0].Err)
	}
	if outcomes[0].Result.Dataset != "revenue" {
		t.Errorf("Dataset = %q, want revenue", outcomes[0].Result.Dataset)
	}

	var dsErr *DatasetError
	if !errors.As(outcomes[1].Err, &dsErr) || dsErr.Dataset != "expenditure" || !errors.Is(outcomes[1].Err, ErrNoForecasts) {
		t.Errorf("expenditure err = %v, want named ErrNoForecasts", outcomes[1].Err)
	}
	if !errors.Is(outcomes[2].Err, ErrNoInput) {
		t.Errorf("budget err = %v, want ErrNoInput", outcomes[2].Err)
	}
}

func TestRunAll_LoadError(t *testing.T) {
	outcomes := RunAll(context.Background(), []Dataset{
		{Name: "revenue", Path: filepath.Join(t.TempDir(), "missing.csv")},
	}, Loader{}, DefaultOptions())

	var dsErr *DatasetError
	if !errors.As(outcomes[0].Err, &dsErr) || dsErr.Dataset != "revenue" {
		t.Errorf("err = %v, want revenue DatasetError", outcomes[0].Err)
	}
	if !errors.Is(outcomes[0].Err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapping os.ErrNotExist", outcomes[0].Err)
	}
}

func TestLoadWithCache(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir, "revenue.csv", constRow("CC1", "4000", 1))

	cache, err := store.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = cache.Close() }()

	first, err := LoadWithCache(path, source.Options{}, cache)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.CacheHit {
		t.Error("first load reported a cache hit")
	}

	second, err := LoadWithCache(path, source.Options{}, cache)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !second.CacheHit || len(second.Table) != len(first.Table) {
		t.Errorf("second load hit=%v rows=%d, want hit with %d rows", second.CacheHit, len(second.Table), len(first.Table))
	}

	// Different read options invalidate the entry.
	third, err := LoadWithCache(path, source.Options{Delimiter: ','}, cache)
	if err != nil {
		t.Fatalf("third load: %v", err)
	}
	if third.CacheHit {
		t.Error("changed options reported a cache hit")
	}

	// Rewriting the file invalidates the entry.
	writeExport(t, dir, "revenue.csv", constRow("CC1", "4000", 1), constRow("CC2", "4000", 2))
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	fourth, err := LoadWithCache(path, source.Options{Delimiter: ','}, cache)
	if err != nil {
		t.Fatalf("fourth load: %v", err)
	}
	if fourth.CacheHit || len(fourth.Table) != 4 {
		t.Errorf("fourth load hit=%v rows=%d, want miss with 4 rows", fourth.CacheHit, len(fourth.Table))
	}
}

func TestCachePath_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	if got := CachePath(); got != filepath.Join("/tmp/xdg", "ledgercast", "tables.db") {
		t.Errorf("CachePath = %q", got)
	}
}

func TestLoad_SkipsColumnNamesAndMetadata(t *testing.T) {
	dir := t.TempDir()
	lines := []string{
		strings.Join(columnNames(), ","),
		"Report,Planning" + strings.Repeat(",", 12),
		strings.Join(constRow("CC900", "9999", 777), ","),
		strings.Join(constRow("CC100", "4000", 100), ","),
		"CC100,4001,1,2,3",
	}
	path := filepath.Join(dir, "revenue.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lr, err := Load(path, source.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	res, err := Forecast(context.Background(), lr.Table, DefaultOptions())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	if res.Stats.Rows != 2 {
		t.Errorf("rows = %d, want 2", res.Stats.Rows)
	}
	accounts := Accounts(res.Forecasts)
	if len(accounts) != 2 || accounts[0] != "4000" || accounts[1] != "4001" {
		t.Errorf("accounts = %v, want [4000 4001]", accounts)
	}
}

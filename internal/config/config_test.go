package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Forecast.BaseYear != 2023 {
		t.Errorf("BaseYear = %d, want 2023", cfg.Forecast.BaseYear)
	}
	if cfg.Forecast.FitTimeout() != 5*time.Second {
		t.Errorf("FitTimeout = %v, want 5s", cfg.Forecast.FitTimeout())
	}
	if Exists() {
		t.Error("Exists() = true before any save")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.General.RevenuePath = "/data/revenue.xlsx"
	cfg.General.Encoding = "latin1"
	cfg.Forecast.BaseYear = 2024
	cfg.Forecast.Workers = 3
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(ConfigPath())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.General.RevenuePath != "/data/revenue.xlsx" || got.General.Encoding != "latin1" {
		t.Errorf("General = %+v", got.General)
	}
	if got.Forecast.BaseYear != 2024 || got.Forecast.Workers != 3 {
		t.Errorf("Forecast = %+v", got.Forecast)
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[forecast]\nbase_year = 2021\n\n[serve]\naddr = \":9000\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Forecast.BaseYear != 2021 {
		t.Errorf("BaseYear = %d, want 2021", cfg.Forecast.BaseYear)
	}
	if cfg.Forecast.FitTimeoutSec != 5 {
		t.Errorf("FitTimeoutSec = %d, want default 5", cfg.Forecast.FitTimeoutSec)
	}
	if cfg.Serve.Addr != ":9000" || cfg.Serve.IntervalSec != 30 {
		t.Errorf("Serve = %+v, want :9000 with default interval", cfg.Serve)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[forecast\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestPathsPreferEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.RevenuePath = "/cfg/rev.csv"
	cfg.General.ExpenditurePath = "/cfg/exp.csv"

	t.Setenv("LEDGERCAST_REVENUE", "/env/rev.csv")
	t.Setenv("LEDGERCAST_EXPENDITURE", "")

	if got := RevenuePath(cfg); got != "/env/rev.csv" {
		t.Errorf("RevenuePath = %q, want env value", got)
	}
	if got := ExpenditurePath(cfg); got != "/cfg/exp.csv" {
		t.Errorf("ExpenditurePath = %q, want config value", got)
	}
}

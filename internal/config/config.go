// Package config loads and saves the ledgercast TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all ledgercast configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Appearance AppearanceConfig `toml:"appearance"`
	Log        LogConfig        `toml:"log"`
	Serve      ServeConfig      `toml:"serve"`
}

// GeneralConfig holds input file settings.
type GeneralConfig struct {
	RevenuePath     string `toml:"revenue_path,omitempty"`
	ExpenditurePath string `toml:"expenditure_path,omitempty"`
	Sheet           string `toml:"sheet,omitempty"`    // xlsx sheet, first sheet when empty
	Encoding        string `toml:"encoding,omitempty"` // csv encoding: utf-8, latin1, or empty to detect
	NoCache         bool   `toml:"no_cache,omitempty"`
}

// ForecastConfig holds engine settings.
type ForecastConfig struct {
	BaseYear      int `toml:"base_year"`
	Workers       int `toml:"workers"` // 0 means one per CPU
	FitTimeoutSec int `toml:"fit_timeout_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// ServeConfig holds HTTP service settings.
type ServeConfig struct {
	Addr        string `toml:"addr"`
	IntervalSec int    `toml:"interval_sec"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Forecast: ForecastConfig{
			BaseYear:      2023,
			FitTimeoutSec: 5,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Serve: ServeConfig{
			Addr:        "127.0.0.1:8787",
			IntervalSec: 30,
		},
	}
}

// FitTimeout returns the per-series fit timeout.
func (c ForecastConfig) FitTimeout() time.Duration {
	return time.Duration(c.FitTimeoutSec) * time.Second
}

// Interval returns the service polling interval.
func (c ServeConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ledgercast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ledgercast")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads the config at path, returning defaults if it doesn't exist.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// RevenuePath returns the revenue export path from env var or config, in that order.
func RevenuePath(cfg Config) string {
	if p := os.Getenv("LEDGERCAST_REVENUE"); p != "" {
		return p
	}
	return cfg.General.RevenuePath
}

// ExpenditurePath returns the expenditure export path from env var or config, in that order.
func ExpenditurePath(cfg Config) string {
	if p := os.Getenv("LEDGERCAST_EXPENDITURE"); p != "" {
		return p
	}
	return cfg.General.ExpenditurePath
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

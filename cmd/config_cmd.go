// Package cmd implements the ledgercast CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/ledgercast/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Revenue:     %s\n", describePath(config.RevenuePath(cfg), "LEDGERCAST_REVENUE"))
	fmt.Printf("    Expenditure: %s\n", describePath(config.ExpenditurePath(cfg), "LEDGERCAST_EXPENDITURE"))
	if cfg.General.Sheet != "" {
		fmt.Printf("    Sheet:       %s\n", cfg.General.Sheet)
	}
	enc := cfg.General.Encoding
	if enc == "" {
		enc = "detect"
	}
	fmt.Printf("    Encoding:    %s\n", enc)
	fmt.Printf("    Cache:       %v\n", !cfg.General.NoCache)
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Base year:   %d\n", cfg.Forecast.BaseYear)
	if cfg.Forecast.Workers > 0 {
		fmt.Printf("    Workers:     %d\n", cfg.Forecast.Workers)
	} else {
		fmt.Println("    Workers:     one per CPU")
	}
	fmt.Printf("    Fit timeout: %s\n", cfg.Forecast.FitTimeout())
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:  %s\n", cfg.Log.Level)
	fmt.Printf("    Format: %s\n", cfg.Log.Format)
	fmt.Println()

	fmt.Println("  [Serve]")
	fmt.Printf("    Address:  %s\n", cfg.Serve.Addr)
	fmt.Printf("    Interval: %s\n", cfg.Serve.Interval())
	fmt.Println()

	fmt.Println("  Run `ledgercast setup` to reconfigure.")
	return nil
}

// describePath shows a configured path and notes when it came from the
// environment.
func describePath(path, envVar string) string {
	if path == "" {
		return "not configured"
	}
	if os.Getenv(envVar) != "" {
		return path + " (from " + envVar + ")"
	}
	return path
}

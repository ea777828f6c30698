package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/config"
	"github.com/theirongolddev/ledgercast/internal/logging"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"
	"github.com/theirongolddev/ledgercast/internal/source"
	"github.com/theirongolddev/ledgercast/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagRevenue     string
	flagExpenditure string
	flagSheet       string
	flagEncoding    string
	flagBaseYear    int
	flagWorkers     int
	flagFitTimeout  time.Duration
	flagNoCache     bool
	flagQuiet       bool
	flagLogLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "ledgercast",
	Short: "Ledger forecasting CLI",
	Long: "Forecast the next 12 months of every cost centre and G/L account in your\n" +
		"revenue and expenditure exports, with cost-centre and total roll-ups.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(err.Error()))
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagRevenue, "revenue", "r", "", "Revenue export (.csv or .xlsx)")
	pf.StringVarP(&flagExpenditure, "expenditure", "e", "", "Expenditure export (.csv or .xlsx)")
	pf.StringVar(&flagSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	pf.StringVar(&flagEncoding, "encoding", "", "CSV encoding: utf-8 or latin1 (default: detect)")
	pf.IntVar(&flagBaseYear, "base-year", 0, "Calendar year of the first month column (default 2023)")
	pf.IntVarP(&flagWorkers, "workers", "w", 0, "Parallel series fits (default: one per CPU)")
	pf.DurationVar(&flagFitTimeout, "fit-timeout", 0, "Per-series fit timeout (default 5s)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite table cache, re-read every export")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// initLogging sets up the global logger from config and flags. The TUI
// discards logs unless a level is requested explicitly.
func initLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	lc := logging.DefaultConfig()
	if cfg.Log.Level != "" {
		lc.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		lc.Format = cfg.Log.Format
	}
	if flagLogLevel != "" {
		lc.Level = flagLogLevel
	} else if cmd == tuiCmd {
		lc.Output = "discard"
	}
	return logging.Initialize(lc)
}

// runEnv is everything a command needs to run the pipeline.
type runEnv struct {
	cfg      config.Config
	datasets []pipeline.Dataset
	loader   pipeline.Loader
	opts     pipeline.Options
	cache    *store.Cache
}

func (e *runEnv) Close() {
	if e.cache != nil {
		_ = e.cache.Close()
	}
}

// resolveConfig merges config file, environment, and flags, in increasing
// precedence.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}

	cfg.General.RevenuePath = config.RevenuePath(cfg)
	cfg.General.ExpenditurePath = config.ExpenditurePath(cfg)

	flags := cmd.Flags()
	if flags.Changed("revenue") {
		cfg.General.RevenuePath = flagRevenue
	}
	if flags.Changed("expenditure") {
		cfg.General.ExpenditurePath = flagExpenditure
	}
	if flags.Changed("sheet") {
		cfg.General.Sheet = flagSheet
	}
	if flags.Changed("encoding") {
		cfg.General.Encoding = flagEncoding
	}
	if flags.Changed("no-cache") {
		cfg.General.NoCache = flagNoCache
	}
	if flags.Changed("base-year") {
		cfg.Forecast.BaseYear = flagBaseYear
	}
	if flags.Changed("workers") {
		cfg.Forecast.Workers = flagWorkers
	}
	if flags.Changed("fit-timeout") {
		cfg.Forecast.FitTimeoutSec = int(flagFitTimeout.Round(time.Second) / time.Second)
		if cfg.Forecast.FitTimeoutSec < 1 && flagFitTimeout > 0 {
			cfg.Forecast.FitTimeoutSec = 1
		}
	}

	switch cfg.General.Encoding {
	case source.EncodingAuto, source.EncodingUTF8, source.EncodingLatin1:
	default:
		return cfg, fmt.Errorf("unknown encoding %q (want utf-8 or latin1)", cfg.General.Encoding)
	}
	return cfg, nil
}

func datasetsFor(cfg config.Config) []pipeline.Dataset {
	return []pipeline.Dataset{
		{Name: model.DatasetRevenue, Path: cfg.General.RevenuePath},
		{Name: model.DatasetExpenditure, Path: cfg.General.ExpenditurePath},
	}
}

func optionsFor(cfg config.Config, logger *zap.Logger) pipeline.Options {
	opts := pipeline.DefaultOptions()
	if cfg.Forecast.BaseYear != 0 {
		opts.BaseYear = cfg.Forecast.BaseYear
	}
	opts.Workers = cfg.Forecast.Workers
	if cfg.Forecast.FitTimeoutSec > 0 {
		opts.FitTimeout = cfg.Forecast.FitTimeout()
	}
	opts.Logger = logger
	return opts
}

// newRunEnv resolves configuration and opens the table cache unless
// disabled. A cache that cannot be opened falls back to direct reads.
func newRunEnv(cmd *cobra.Command) (*runEnv, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	env := &runEnv{
		cfg:      cfg,
		datasets: datasetsFor(cfg),
		loader: pipeline.Loader{Source: source.Options{
			Sheet:    cfg.General.Sheet,
			Encoding: cfg.General.Encoding,
		}},
		opts: optionsFor(cfg, logging.Named("pipeline")),
	}

	if !cfg.General.NoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			logging.Logger.Warn("table cache unavailable, reading exports directly", zap.Error(err))
		} else {
			env.cache = cache
			env.loader.Cache = cache
		}
	}
	return env, nil
}

// runDatasets runs the given datasets with stderr progress and returns the
// outcomes plus the joined dataset errors.
func runDatasets(ctx context.Context, env *runEnv, datasets []pipeline.Dataset) ([]pipeline.Outcome, error) {
	outcomes := make([]pipeline.Outcome, len(datasets))
	var errs []error
	for i, ds := range datasets {
		opts := env.opts
		if !flagQuiet {
			name := ds.Name
			opts.Progress = func(done, total int) {
				if done%25 == 0 || done == total {
					fmt.Fprintf(os.Stderr, "\r  Fitting %-12s %s", name, cli.RenderProgressBar(done, total, 30))
				}
			}
		}

		outcomes[i] = pipeline.RunOne(ctx, ds, env.loader, opts)
		if !flagQuiet {
			fmt.Fprint(os.Stderr, "\r\033[K")
		}
		if err := outcomes[i].Err; err != nil {
			errs = append(errs, err)
		}
	}
	return outcomes, errors.Join(errs...)
}

// selectDatasets narrows the configured datasets to names, or all when
// names is empty.
func selectDatasets(all []pipeline.Dataset, names []string) ([]pipeline.Dataset, error) {
	if len(names) == 0 {
		return all, nil
	}
	var out []pipeline.Dataset
	for _, n := range names {
		found := false
		for _, ds := range all {
			if ds.Name == n {
				out = append(out, ds)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown dataset %q (want %s or %s)", n, model.DatasetRevenue, model.DatasetExpenditure)
		}
	}
	return out, nil
}

// configured drops datasets with no input file. It is an error for none to
// be configured.
func configured(datasets []pipeline.Dataset) ([]pipeline.Dataset, error) {
	var out []pipeline.Dataset
	for _, ds := range datasets {
		if ds.Path != "" {
			out = append(out, ds)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no input files configured (pass --revenue/--expenditure, set LEDGERCAST_REVENUE, or run: ledgercast setup)")
	}
	return out, nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagAccount    string
	flagCostCenter string
	flagLong       bool
	flagJSON       bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast [dataset...]",
	Short: "Per-series forecasts (cost centre x G/L account)",
	Long: "List the 12-month forecast of every modeled series. Datasets default to\n" +
		"every configured export; --account and --cost-center filter by substring.",
	ValidArgs: model.Datasets,
	RunE:      runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&flagAccount, "account", "", "Filter by G/L account (substring)")
	forecastCmd.Flags().StringVar(&flagCostCenter, "cost-center", "", "Filter by cost centre (substring)")
	forecastCmd.Flags().BoolVar(&flagLong, "long", false, "One row per series and month")
	forecastCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	rootCmd.AddCommand(forecastCmd)
}

// seriesRow is one series folded into a single summary row.
type seriesRow struct {
	key    model.SeriesKey
	values []float64
}

// foldSeries groups points by series key, in first-seen order.
func foldSeries(points model.ForecastTable) []seriesRow {
	idx := make(map[model.SeriesKey]int)
	var rows []seriesRow
	for _, p := range points {
		k := p.Key()
		i, ok := idx[k]
		if !ok {
			i = len(rows)
			idx[k] = i
			rows = append(rows, seriesRow{key: k})
		}
		rows[i].values = append(rows[i].values, p.Forecast)
	}
	return rows
}

func filterForecasts(points model.ForecastTable) model.ForecastTable {
	if flagAccount != "" {
		points = pipeline.FilterByAccount(points, flagAccount)
	}
	if flagCostCenter != "" {
		points = pipeline.FilterByCostCenter(points, flagCostCenter)
	}
	return points
}

func runForecast(cmd *cobra.Command, args []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	datasets, err := pickDatasets(env, args)
	if err != nil {
		return err
	}
	outcomes, runErr := runDatasets(cmd.Context(), env, datasets)

	if flagJSON {
		out := make(map[string]model.ForecastTable)
		for _, o := range outcomes {
			if o.Err == nil {
				out[o.Dataset.Name] = filterForecasts(o.Result.Forecasts)
			}
		}
		if err := writeJSON(out); err != nil {
			return err
		}
		return runErr
	}

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		points := filterForecasts(o.Result.Forecasts)
		fmt.Println()
		if len(points) == 0 {
			fmt.Println(cli.RenderMuted(fmt.Sprintf("  %s: no series match the filters", o.Dataset.Name)))
			continue
		}
		if flagLong {
			fmt.Print(cli.RenderTable(longForecastTable(o.Dataset.Name, points)))
		} else {
			fmt.Print(cli.RenderTable(seriesTable(o.Dataset.Name, points)))
		}
	}
	fmt.Println()
	return runErr
}

func seriesTable(dataset string, points model.ForecastTable) cli.Table {
	series := foldSeries(points)
	rows := make([][]string, 0, len(series))
	for _, s := range series {
		first, last := s.values[0], s.values[len(s.values)-1]
		var sum float64
		for _, v := range s.values {
			sum += v
		}
		rows = append(rows, []string{
			s.key.CostCenter,
			s.key.Account,
			cli.RenderSparkline(s.values),
			cli.FormatAmount(first),
			cli.FormatAmount(last),
			cli.FormatAmount(sum),
		})
	}
	return cli.Table{
		Title:    fmt.Sprintf("%s Forecasts  %d series", datasetTitle(dataset), len(series)),
		Headers:  []string{"Cost Centre", "G/L Account", "Trend", "First", "Last", "12-mo Total"},
		Rows:     rows,
		TextCols: 3,
	}
}

func longForecastTable(dataset string, points model.ForecastTable) cli.Table {
	rows := make([][]string, 0, len(points))
	var prev model.SeriesKey
	for i, p := range points {
		if i > 0 && p.Key() != prev {
			rows = append(rows, []string{"---"})
		}
		prev = p.Key()
		rows = append(rows, []string{cli.FormatMonth(p.Date), p.CostCenter, p.Account, cli.FormatAmount(p.Forecast)})
	}
	return cli.Table{
		Title:    datasetTitle(dataset) + " Forecasts",
		Headers:  []string{"Month", "Cost Centre", "G/L Account", "Forecast"},
		Rows:     rows,
		TextCols: 3,
	}
}

// pickDatasets resolves positional dataset names against the configured
// inputs. With no names, every configured dataset is used.
func pickDatasets(env *runEnv, names []string) ([]pipeline.Dataset, error) {
	if len(names) == 0 {
		return configured(env.datasets)
	}
	return selectDatasets(env.datasets, names)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

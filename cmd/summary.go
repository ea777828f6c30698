package cmd

import (
	"fmt"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run statistics and forecast totals per dataset",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	env, err := newRunEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	datasets, err := configured(env.datasets)
	if err != nil {
		return err
	}

	outcomes, runErr := runDatasets(cmd.Context(), env, datasets)

	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(summaryTable(o, env.opts.BaseYear)))
		fmt.Printf("  12-month outlook  %s\n", cli.RenderSparkline(totalValues(o.Result.Total)))
	}
	fmt.Println()
	return runErr
}

func summaryTable(o pipeline.Outcome, baseYear int) cli.Table {
	res := o.Result
	st := res.Stats

	source := o.Dataset.Path
	if o.CacheHit {
		source += " (cached)"
	}

	rows := [][]string{
		{"Source", source},
		{"Base year", fmt.Sprintf("%d", baseYear)},
		{"---"},
		{"Rows", cli.FormatNumber(int64(st.Rows))},
		{"Rows without key", cli.FormatNumber(int64(st.Unkeyed))},
		{"Series", cli.FormatNumber(int64(st.Series))},
		{"Fitted", cli.FormatNumber(int64(st.Fitted))},
		{"Skipped (short)", cli.FormatNumber(int64(st.Skipped))},
		{"Failed", cli.FormatNumber(int64(st.Failed))},
		{"Run time", cli.FormatElapsed(st.Duration)},
		{"---"},
	}

	if n := len(res.Total); n > 0 {
		first, last := res.Total[0], res.Total[n-1]
		rows = append(rows,
			[]string{"Horizon", cli.FormatMonth(first.Date) + " to " + cli.FormatMonth(last.Date)},
			[]string{"Forecast total", cli.FormatAmount(sumTotals(res.Total))},
			[]string{"First month", cli.FormatAmount(first.Forecast)},
			[]string{"Last month", cli.FormatAmount(last.Forecast) + "  (" + cli.FormatChange(first.Forecast, last.Forecast) + ")"},
			[]string{"Cost centres", cli.FormatNumber(int64(len(pipeline.CostCenters(res.Forecasts))))},
			[]string{"G/L accounts", cli.FormatNumber(int64(len(pipeline.Accounts(res.Forecasts))))},
		)
	}

	return cli.Table{
		Title:   datasetTitle(o.Dataset.Name),
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}
}

func datasetTitle(name string) string {
	switch name {
	case model.DatasetRevenue:
		return "Revenue"
	case model.DatasetExpenditure:
		return "Expenditure"
	default:
		return name
	}
}

func totalValues(total []model.TotalForecast) []float64 {
	out := make([]float64, len(total))
	for i, t := range total {
		out[i] = t.Forecast
	}
	return out
}

func sumTotals(total []model.TotalForecast) float64 {
	var sum float64
	for _, t := range total {
		sum += t.Forecast
	}
	return sum
}

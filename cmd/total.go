package cmd

import (
	"fmt"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/model"

	"github.com/spf13/cobra"
)

var totalCmd = &cobra.Command{
	Use:       "total [dataset...]",
	Short:     "Monthly forecast totals across all series",
	ValidArgs: model.Datasets,
	RunE:      runTotal,
}

func init() {
	totalCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	rootCmd.AddCommand(totalCmd)
}

func runTotal(cmd *cobra.Command, args []string) error {
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
		out := make(map[string][]model.TotalForecast)
		for _, o := range outcomes {
			if o.Err == nil {
				out[o.Dataset.Name] = o.Result.Total
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
		fmt.Println()
		fmt.Print(cli.RenderTable(totalTable(o.Dataset.Name, o.Result.Total)))
	}
	fmt.Println()
	return runErr
}

func totalTable(dataset string, total []model.TotalForecast) cli.Table {
	var maxVal float64
	for _, t := range total {
		if t.Forecast > maxVal {
			maxVal = t.Forecast
		}
	}

	rows := make([][]string, 0, len(total)+2)
	for _, t := range total {
		rows = append(rows, []string{
			cli.FormatMonth(t.Date),
			cli.FormatAmount(t.Forecast),
			cli.RenderHorizontalBar("", t.Forecast, maxVal, 24),
		})
	}
	rows = append(rows, []string{"---"}, []string{"Total", cli.FormatAmount(sumTotals(total)), ""})

	return cli.Table{
		Title:    "Total " + datasetTitle(dataset) + " Forecast",
		Headers:  []string{"Month", "Forecast", ""},
		Rows:     rows,
		TextCols: 1,
	}
}

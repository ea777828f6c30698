package cmd

import (
	"fmt"

	"github.com/theirongolddev/ledgercast/internal/cli"
	"github.com/theirongolddev/ledgercast/internal/model"

	"github.com/spf13/cobra"
)

var centersCmd = &cobra.Command{
	Use:       "centers [dataset...]",
	Short:     "Forecasts rolled up per cost centre",
	ValidArgs: model.Datasets,
	RunE:      runCenters,
}

func init() {
	centersCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	rootCmd.AddCommand(centersCmd)
}

func runCenters(cmd *cobra.Command, args []string) error {
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
		out := make(map[string][]model.CostCenterForecast)
		for _, o := range outcomes {
			if o.Err == nil {
				out[o.Dataset.Name] = o.Result.CostCenters
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
		fmt.Print(cli.RenderTable(centersTable(o.Dataset.Name, o.Result.CostCenters)))
	}
	fmt.Println()
	return runErr
}

// centersTable renders one row per cost centre with its 12-month trend.
// Roll-up rows arrive ordered by date then cost centre.
func centersTable(dataset string, rollup []model.CostCenterForecast) cli.Table {
	idx := make(map[string]int)
	var names []string
	var values [][]float64
	for _, r := range rollup {
		i, ok := idx[r.CostCenter]
		if !ok {
			i = len(names)
			idx[r.CostCenter] = i
			names = append(names, r.CostCenter)
			values = append(values, nil)
		}
		values[i] = append(values[i], r.Forecast)
	}

	rows := make([][]string, 0, len(names)+2)
	var grand float64
	for i, name := range names {
		v := values[i]
		var sum float64
		for _, x := range v {
			sum += x
		}
		grand += sum
		rows = append(rows, []string{
			name,
			cli.RenderSparkline(v),
			cli.FormatAmount(v[0]),
			cli.FormatAmount(v[len(v)-1]),
			cli.FormatAmount(sum),
		})
	}
	rows = append(rows, []string{"---"}, []string{"Total", "", "", "", cli.FormatAmount(grand)})

	return cli.Table{
		Title:    fmt.Sprintf("%s by Cost Centre  %d centres", datasetTitle(dataset), len(names)),
		Headers:  []string{"Cost Centre", "Trend", "First", "Last", "12-mo Total"},
		Rows:     rows,
		TextCols: 2,
	}
}

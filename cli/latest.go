package cli

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/coreybb/thermowatch/dayclock"
)

var (
	latestDay  string
	latestJSON bool
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest temperature per checked-in worker",
	Args:  cobra.NoArgs,
	RunE:  runLatest,
}

func init() {
	latestCmd.Flags().StringVar(&latestDay, "day", "", "Day as YYYY-MM-DD (defaults to today in TIMEZONE)")
	latestCmd.Flags().BoolVar(&latestJSON, "json", false, "Print JSON instead of a table")
}

func runLatest(cmd *cobra.Command, args []string) error {
	if latestDay != "" && !dayclock.ValidDay(latestDay) {
		return fmt.Errorf("invalid day %q, expected YYYY-MM-DD", latestDay)
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	day := latestDay
	if day == "" {
		day = a.registry.CurrentDay()
	}
	latest, err := a.projector.ProjectDay(cmd.Context(), day)
	if err != nil {
		return err
	}
	if latestJSON {
		return printJSON(cmd, latest)
	}

	workers := make([]string, 0, len(latest))
	for worker := range latest {
		workers = append(workers, worker)
	}
	sort.Strings(workers)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Worker", "Temperature (C)", "Recorded (" + a.clock.Location().String() + ")"})
	for _, worker := range workers {
		temp, recorded := "-", "-"
		if l := latest[worker]; l.TemperatureC != nil {
			temp = fmt.Sprintf("%.1f", *l.TemperatureC)
			recorded = *l.RecordedLocal
		}
		table.Append([]string{worker, temp, recorded})
	}
	table.Render()
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coreybb/thermowatch/checkin"
	"github.com/coreybb/thermowatch/models"
)

var checkinDay string

var checkinCmd = &cobra.Command{
	Use:   "checkin <worker_id> <element_id> <full name...>",
	Short: "Bind a worker to an element for the day",
	Long: `Bind a worker to a sensing element for today (or --day).

Examples:
  thermowatch checkin W17 3 Ada Obi
  thermowatch checkin --day 2025-05-01 W17 3 "Ada Obi"`,
	Args: cobra.MinimumNArgs(3),
	RunE: runCheckin,
}

var checkinListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the day's check-ins",
	Args:  cobra.NoArgs,
	RunE:  runCheckinList,
}

func init() {
	checkinCmd.PersistentFlags().StringVar(&checkinDay, "day", "", "Day as YYYY-MM-DD (defaults to today in TIMEZONE)")
	checkinCmd.AddCommand(checkinListCmd)
}

func runCheckin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	workerID, elementID, fullName := args[0], args[1], strings.Join(args[2:], " ")

	day := checkinDay
	if day == "" {
		day = a.registry.CurrentDay()
	}
	created, err := a.registry.Bind(cmd.Context(), day, workerID, elementID, fullName)
	if err != nil {
		if errors.Is(err, models.ErrWorkerAlreadyBound) || errors.Is(err, models.ErrElementAlreadyBound) {
			return errors.New(checkin.ConflictMessage(err, strings.TrimSpace(workerID), strings.TrimSpace(elementID)))
		}
		return err
	}
	return printJSON(cmd, created)
}

func runCheckinList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	day := checkinDay
	if day == "" {
		day = a.registry.CurrentDay()
	}
	checkins, err := a.registry.ListForDay(cmd.Context(), day)
	if err != nil {
		return err
	}
	return printJSON(cmd, checkins)
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

package cli

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coreybb/thermowatch/thingspeak"
)

var (
	syncOnce      bool
	syncBatchSize int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile readings from the ThingSpeak channel",
	Long: `Fetch readings from the configured ThingSpeak channel and store the ones
not already present. Without --once the poller keeps running on SYNC_INTERVAL.

Examples:
  thermowatch sync --once
  thermowatch sync --once --results 500`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "Run a single cycle and print its result")
	syncCmd.Flags().IntVar(&syncBatchSize, "results", 0, "Entries to fetch per cycle (overrides SYNC_BATCH_SIZE)")
}

func runSync(cmd *cobra.Command, args []string) error {
	if cfg.ThingSpeakChannelID == "" {
		return thingspeak.ErrChannelNotConfigured
	}
	if syncBatchSize < 0 {
		return errors.New("--results must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	poller := a.newPoller(syncBatchSize)
	if !syncOnce {
		return poller.Run(ctx)
	}

	result, err := poller.SyncOnce(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

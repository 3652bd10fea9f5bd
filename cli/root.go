// Package cli wires configuration, storage and services into cobra commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreybb/thermowatch/config"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var (
	verbose     bool
	storeDriver string
	logger      *slog.Logger
	cfg         config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "thermowatch",
	Short: "Field-worker temperature monitoring service",
	Long: `thermowatch ingests temperature readings from wearable sensing elements,
binds each element to a worker for the day, and reports the latest
temperature per worker.

Readings arrive by HTTP push, MQTT, or by polling a ThingSpeak channel.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()
		return loadConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Storage backend: sqlite, postgres or memory (overrides STORE_DRIVER)")

	rootCmd.AddCommand(serveCmd, syncCmd, checkinCmd, latestCmd, migrateCmd, discoverCmd)
}

// setupLogger configures the logger based on the verbose flag
func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(logger)
}

func loadConfig() error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if storeDriver != "" {
		loaded.StoreDriver = storeDriver
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
	}
	cfg = loaded
	return nil
}

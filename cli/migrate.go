package cli

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening a store applies its schema.
		_, _, closer, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger.Info("Schema is up to date", "store", cfg.StoreDriver)
		return nil
	},
}

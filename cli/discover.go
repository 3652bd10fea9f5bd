package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/coreybb/thermowatch/discovery"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List thermowatch instances advertised on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		instances, err := discovery.Browse(cmd.Context(), discoverTimeout)
		if err != nil {
			return err
		}
		logger.Debug("mDNS browse finished", "found", len(instances))
		return printJSON(cmd, instances)
	},
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 3*time.Second, "How long to wait for answers")
}

package cmd

import (
	"os"

	"github.com/OpenCHAMI/pductl/internal/cache/sqlite"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The `cache` command manages the local outlet state cache.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local outlet state cache",
}

var cacheRemoveCmd = &cobra.Command{
	Use:     "remove HOST...",
	Short:   "Remove cached states for one or more PDU hosts",
	Args:    cobra.MinimumNArgs(1),
	Example: "  pductl cache remove 10.254.1.24 x3000m0",
	Run: func(cmd *cobra.Command, args []string) {
		cachePath := viper.GetString("cache")
		if err := sqlite.DeleteOutletStates(cachePath, args...); err != nil {
			log.Error().Err(err).Msg("failed to remove cached outlet states")
			os.Exit(1)
		}
	},
}

func init() {
	cacheCmd.AddCommand(cacheRemoveCmd)
	rootCmd.AddCommand(cacheCmd)
}

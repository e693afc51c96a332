package cmd

import (
	"fmt"
	"os"

	"github.com/OpenCHAMI/pductl/internal/cache/sqlite"
	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The `list` command prints the last-known outlet and group states
// recorded in the local cache, without sending any requests to the
// controllers.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached outlet and group states",
	Example: `  pductl list
  pductl list -F json`,
	Run: func(cmd *cobra.Command, args []string) {
		cachePath := viper.GetString("cache")
		states, err := sqlite.GetOutletStates(cachePath)
		if err != nil {
			log.Error().Err(err).Msg("failed to retrieve cached outlet states")
			os.Exit(1)
		}

		outputFormat := format.DataFormat(viper.GetString("format"))
		if outputFormat == format.FORMAT_LIST {
			for _, s := range states {
				fmt.Printf("%-40s %-6s %-8s %s\n", s.Host, s.Scope, s.Name, s.State)
			}
			return
		}
		b, err := format.Marshal(states, outputFormat)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal cached outlet states")
			os.Exit(1)
		}
		fmt.Printf("%s\n", b)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

package cmd

import (
	"github.com/OpenCHAMI/pductl/pkg/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// The `daemon` command launches a long-running server that exposes all other commands as HTTP endpoints.
var daemonCmd = &cobra.Command{
	Use: "daemon",
	Example: `  // basic launch
  pductl daemon
  // launch with a custom configuration
  pductl daemon -c custom-settings.yml`,
	Short: "Launch a long-running web server, e.g. for container use",
	Long:  "Exposes all other commands as HTTP endpoints, so that pductl functionality can be controlled remotely by authorized users.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Don't expose the `daemon` command itself; that could lead to very weird recursion scenarios.
		// This should apply to any subcommands, as well.
		rootCmd.RemoveCommand(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemon.RunServer(rootCmd)
	},
}

func init() {
	daemonCmd.Flags().StringP("endpoint", "e", "localhost:80", "Root endpoint for the daemon to listen on")
	checkBindFlagError(viper.BindPFlag("daemon.endpoint", daemonCmd.Flags().Lookup("endpoint")))

	rootCmd.AddCommand(daemonCmd)
}

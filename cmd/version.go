package cmd

import (
	"fmt"

	pductl "github.com/OpenCHAMI/pductl/internal"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use: "version",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flag("rev").Value.String() == "true" {
			fmt.Println(pductl.VersionCommit())
		} else {
			fmt.Println(pductl.VersionTag())
		}
	},
}

func init() {
	versionCmd.Flags().Bool("rev", false, "show the version commit")
	rootCmd.AddCommand(versionCmd)
}

package cmd

import (
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/spf13/cobra"
)

// The `status` command queries the current state of outlets and
// groups and prints one row per scope.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the power state of outlets and groups",
	Example: `  pductl status -P x3000m0 -o AA1,AA2
  pductl status -P 10.254.1.24 -g Compute
  pductl status -f seq.json -F json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDispatch(pdu.ActionStatus)
	},
}

func init() {
	addTargetFlags(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

package cmd

import (
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/spf13/cobra"
)

// The `power` command sends a control action to outlets and groups.
// Each supported action is a subcommand so mistyped actions fail at
// argument parsing instead of at the controller.
var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Send a power control action to outlets and groups",
}

var powerOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Power on outlets and groups",
	Example: `  pductl power on -P x3000m0 -o AA1,AA2
  pductl power on -P 10.254.1.24 -g Compute,Storage`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDispatch(pdu.ActionOn)
	},
}

var powerOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Power off outlets and groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDispatch(pdu.ActionOff)
	},
}

var powerRebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot outlets and groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDispatch(pdu.ActionReboot)
	},
}

func init() {
	for _, c := range []*cobra.Command{powerOnCmd, powerOffCmd, powerRebootCmd} {
		addTargetFlags(c)
		powerCmd.AddCommand(c)
	}
	rootCmd.AddCommand(powerCmd)
}

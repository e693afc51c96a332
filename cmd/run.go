package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// The `run` command executes a power sequence file as written: every
// group and outlet entry keeps the operation named in the file instead
// of a single action forced from the command line.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a power sequence file",
	Example: `  pductl run -f seq.json
  pductl run -f seq.yaml -P 10.254.1.24`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seqFile == "" {
			return errors.New("run requires a sequence file (see the -f/--file flag)")
		}
		// Empty action defers to the per-scope operations in the file.
		return runDispatch("")
	},
}

func init() {
	addTargetFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

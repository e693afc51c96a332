package cmd

import (
	"context"
	"fmt"
	"os"

	pductl "github.com/OpenCHAMI/pductl/internal"
	"github.com/OpenCHAMI/pductl/internal/format"
	"github.com/OpenCHAMI/pductl/internal/util"
	"github.com/OpenCHAMI/pductl/pkg/pdu"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// runDispatch is the shared driver behind status, power, and run. It
// merges the optional sequence file with the command-line targets,
// dispatches the resolved operations, writes the report, and exits
// non-zero when any operation failed.
func runDispatch(action pdu.Action) error {
	var (
		seq *pductl.Sequence
		err error
	)
	if seqFile != "" {
		seq, err = pductl.LoadSequence(seqFile)
		if err != nil {
			return err
		}
		if seq.User != "" && !viper.IsSet("username") {
			viper.Set("username", seq.User)
		}
	}
	cfg := pductl.BuildConfig(seq, pdus, groups, outlets, action)

	report, err := pductl.RunOperations(context.Background(), cfg, &pductl.DispatchParams{
		Store:       util.BuildSecretStore(),
		Timeout:     viper.GetInt("timeout"),
		Concurrency: viper.GetInt("concurrency"),
		Retries:     viper.GetInt("retries"),
		RetryDelay:  viper.GetDuration("retry-delay"),
		CACertPath:  viper.GetString("cacert"),
		CachePath:   viper.GetString("cache"),
	})
	if err != nil {
		return err
	}

	outputFormat := format.DataFormat(viper.GetString("format"))
	if err := pductl.WriteReport(os.Stdout, report, outputFormat); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if report.HasFailures() {
		log.Debug().Msg("one or more operations failed")
		os.Exit(1)
	}
	return nil
}

// The cmd package implements the interface for the pductl CLI. The
// files contained in this package only contain implementations for
// handling CLI arguments and passing them to functions within pductl's
// internal API.
//
// Each CLI subcommand has at least one corresponding internal file
// with an API routine that implements the command's functionality.
//
// For example:
//
//	cmd/status.go --> internal/dispatch.go ( pductl.RunOperations() )
//	cmd/power.go  --> internal/dispatch.go ( pductl.RunOperations() )
//	cmd/list.go   --> none (doesn't have API call since it's simple)
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/OpenCHAMI/pductl/internal/log"
	"github.com/OpenCHAMI/pductl/internal/util"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	pdus    []string
	groups  []string
	outlets []string
	seqFile string
)

// The `root` command doesn't do anything on its own except display
// a help message and then exits.
var rootCmd = &cobra.Command{
	Use:   "pductl",
	Short: "Server Tech iPDU power control tool",
	Long:  "Control power and query status of outlets and groups on Server Tech iPDUs over the JAWS management API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := log.INFO
		if viper.GetBool("debug") {
			level = log.DEBUG
		}
		return log.InitWithLogLevel(level, viper.GetString("log-path"))
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			err := cmd.Help()
			if err != nil {
				zlog.Error().Err(err).Msg("failed to print help")
			}
			os.Exit(0)
		}
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitializeConfig)
	rootCmd.PersistentFlags().IntP("concurrency", "j", -1, "Set the number of concurrent PDU workers (defaults to one per PDU)")
	rootCmd.PersistentFlags().IntP("timeout", "t", 30, "Set the timeout for requests in seconds")
	rootCmd.PersistentFlags().Int("retries", 5, "Set the attempt budget per operation")
	rootCmd.PersistentFlags().Duration("retry-delay", time.Second, "Set the delay between attempts")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Set the config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Set to enable/disable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "Set to enable/disable debug messages")
	rootCmd.PersistentFlags().String("log-path", "", "Set the path to write logs to")
	rootCmd.PersistentFlags().StringP("username", "u", "", "Set the JAWS username")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Set the JAWS password")
	rootCmd.PersistentFlags().String("secrets-file", "secrets.json", "Set the path to the PDU secrets file")
	rootCmd.PersistentFlags().String("cacert", "", "Set the path to a CA cert (TLS verification is off when blank)")
	rootCmd.PersistentFlags().StringP("format", "F", "list", "Set the output format (list|json|yaml)")
	rootCmd.PersistentFlags().String("cache", fmt.Sprintf("/tmp/%s/pductl/states.db", util.GetCurrentUsername()), "Set the outlet state cache path")

	// bind viper config flags with cobra
	checkBindFlagError(viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency")))
	checkBindFlagError(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
	checkBindFlagError(viper.BindPFlag("retries", rootCmd.PersistentFlags().Lookup("retries")))
	checkBindFlagError(viper.BindPFlag("retry-delay", rootCmd.PersistentFlags().Lookup("retry-delay")))
	checkBindFlagError(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	checkBindFlagError(viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")))
	checkBindFlagError(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	checkBindFlagError(viper.BindPFlag("log-path", rootCmd.PersistentFlags().Lookup("log-path")))
	checkBindFlagError(viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username")))
	checkBindFlagError(viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password")))
	checkBindFlagError(viper.BindEnv("password", "PDU_PASSWORD"))
	checkBindFlagError(viper.BindPFlag("secrets.file", rootCmd.PersistentFlags().Lookup("secrets-file")))
	checkBindFlagError(viper.BindPFlag("cacert", rootCmd.PersistentFlags().Lookup("cacert")))
	checkBindFlagError(viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format")))
	checkBindFlagError(viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache")))
}

func checkBindFlagError(err error) {
	if err != nil {
		zlog.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

// InitializeConfig() initializes a new config object by loading it
// from a file given a non-empty string.
func InitializeConfig() {
	viper.AutomaticEnv()
	if viper.IsSet("config") && viper.GetString("config") != "" {
		viper.SetConfigFile(viper.GetString("config"))
	} else {
		config_dir := os.Getenv("XDG_CONFIG_HOME")
		if config_dir == "" {
			config_dir = "$HOME/.config"
		}
		viper.AddConfigPath(config_dir + "/pductl")
		viper.SetConfigName("config")
		// File type left unspecified; Viper will auto-parse based on extension
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zlog.Error().Err(err).Msg("failed to load config")
		}
	}
}

// addTargetFlags registers the target selection flags shared by every
// command that dispatches operations to PDUs.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&pdus, "pdus", "P", nil, "iPDU controller hostnames, IPv4 addrs, and/or IPv6 addrs")
	cmd.Flags().StringSliceVarP(&groups, "groups", "g", nil, "target groups")
	cmd.Flags().StringSliceVarP(&outlets, "outlets", "o", nil, "target outlets")
	cmd.Flags().StringVarP(&seqFile, "file", "f", "", "power sequence file (JSON or YAML), command line overrides values in the file")
}

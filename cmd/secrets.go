package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	secretsStoreFormat    string // slightly different from format.DataFormat
	secretsStoreInputFile string
)

var secretsCmd = &cobra.Command{
	Use: "secrets",
	Example: `  // generate new key and set environment variable
  export MASTER_KEY=$(pductl secrets generatekey)

  // store creds for a specific iPDU in the default secrets store
  pductl secrets store $pdu_host $pdu_creds

  // store fallback creds used for every iPDU without its own entry
  pductl secrets store default admin:initial

  // retrieve creds from the secrets store
  pductl secrets retrieve $pdu_host`,
	Short: "Manage credentials for iPDU controllers",
	Long:  "Manage credentials for iPDU controllers used when talking to the JAWS API. This requires generating a key and setting the 'MASTER_KEY' environment variable for the secrets store.",
}

var secretsGenerateKeyCmd = &cobra.Command{
	Use:   "generatekey",
	Args:  cobra.NoArgs,
	Short: "Generates a new 32-byte master key (in hex).",
	Run: func(cmd *cobra.Command, args []string) {
		key, err := secrets.GenerateMasterKey()
		if err != nil {
			fmt.Printf("Error generating master key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", key)
	},
}

var secretsStoreCmd = &cobra.Command{
	Use:   "store secretID <basic(default)|json|base64>",
	Args:  cobra.MinimumNArgs(1),
	Short: "Stores the given credentials under secretID.",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			secretID    = args[0]
			secretValue string
		)
		if len(args) > 1 {
			secretValue = args[1]
		}
		if secretValue == "" && secretsStoreInputFile == "" {
			log.Error().Msg("no input data or file")
			os.Exit(1)
		}

		// handle input format
		switch secretsStoreFormat {
		case "basic": // format: $username:$password
			values := strings.SplitN(secretValue, ":", 2)
			if len(values) != 2 {
				log.Error().Msgf("expected 2 arguments in [username:password] format but got %d", len(values))
				os.Exit(1)
			}
			b, err := json.Marshal(map[string]string{
				"username": values[0],
				"password": values[1],
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal credentials")
				os.Exit(1)
			}
			secretValue = string(b)
		case "base64": // format: ($encoded_base64_string)
			decoded, err := base64.StdEncoding.DecodeString(secretValue)
			if err != nil {
				log.Error().Err(err).Msg("error decoding base64 data")
				os.Exit(1)
			}
			if !isValidCredsJSON(string(decoded)) {
				log.Error().Msg("value is not a valid JSON or is missing credentials")
				os.Exit(1)
			}
			secretValue = string(decoded)
		case "json": // format: {"username": $username, "password": $password}
			// read input from file if set and override
			if secretsStoreInputFile != "" {
				if secretValue != "" {
					log.Error().Msg("cannot use -i/--input-file with positional argument")
					os.Exit(1)
				}
				b, err := os.ReadFile(secretsStoreInputFile)
				if err != nil {
					log.Error().Err(err).Msg("failed to read input file")
					os.Exit(1)
				}
				secretValue = string(b)
			}
			if !isValidCredsJSON(secretValue) {
				log.Error().Msg("not a valid JSON or creds")
				os.Exit(1)
			}
		default:
			log.Error().Msg("no input format set")
			os.Exit(1)
		}

		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			log.Error().Err(err).Msg("failed to open secrets store")
			os.Exit(1)
		}
		if err := store.StoreSecretByID(secretID, secretValue); err != nil {
			log.Error().Err(err).Msg("failed to store secret by ID")
			os.Exit(1)
		}
	},
}

func isValidCredsJSON(val string) bool {
	var creds map[string]string
	if err := json.Unmarshal([]byte(val), &creds); err != nil {
		return false
	}
	_, validUsername := creds["username"]
	_, validPassword := creds["password"]
	return validUsername && validPassword
}

var secretsRetrieveCmd = &cobra.Command{
	Use:  "retrieve secretID",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		secretID := args[0]
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		secretValue, err := store.GetSecretByID(secretID)
		if err != nil {
			fmt.Printf("Error retrieving secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Secret for %s: %s\n", secretID, secretValue)
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.ExactArgs(0),
	Short: "Lists all the secret IDs and their values.",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		stored, err := store.ListSecrets()
		if err != nil {
			fmt.Printf("Error listing secrets: %v\n", err)
			os.Exit(1)
		}
		for key, value := range stored {
			fmt.Printf("%s: %s\n", key, value)
		}
	},
}

var secretsRemoveCmd = &cobra.Command{
	Use:   "remove secretIDs...",
	Args:  cobra.MinimumNArgs(1),
	Short: "Remove secrets by IDs from secret store.",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		for _, secretID := range args {
			if err := store.RemoveSecretByID(secretID); err != nil {
				fmt.Println("failed to remove secret: ", err)
				os.Exit(1)
			}
		}
	},
}

func init() {
	secretsStoreCmd.Flags().StringVarP(&secretsStoreFormat, "input-format", "I", "basic", "Set the input format for the secret value (basic|json|base64).")
	secretsStoreCmd.Flags().StringVarP(&secretsStoreInputFile, "input-file", "i", "", "Set the file to read as input.")

	secretsCmd.AddCommand(secretsGenerateKeyCmd)
	secretsCmd.AddCommand(secretsStoreCmd)
	secretsCmd.AddCommand(secretsRetrieveCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsRemoveCmd)

	rootCmd.AddCommand(secretsCmd)
}

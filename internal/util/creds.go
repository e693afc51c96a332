package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// BuildSecretStore creates a secret store for PDU credentials using
// credentials explicitly provided via Viper, or by opening the local
// secrets file. When neither source yields credentials and stdin is a
// terminal, the user is prompted the way the original field tool did.
func BuildSecretStore() secrets.SecretStore {
	if viper.IsSet("username") && viper.IsSet("password") {
		log.Debug().Msg("--username and --password specified, using them for PDU credentials")
		return secrets.NewStaticStore(viper.GetString("username"), viper.GetString("password"))
	}

	secretsFile := viper.GetString("secrets.file")
	if exists, _ := PathExists(secretsFile); exists && os.Getenv("MASTER_KEY") != "" {
		log.Debug().Msgf("attempting to obtain PDU credentials from secret store at %s", secretsFile)
		store, err := secrets.OpenStore(secretsFile)
		if err != nil {
			log.Error().Err(err).Msg("failed to open local secrets store")
			return secrets.NewStaticStore("", "")
		}
		return store
	}

	// Fall back to an interactive prompt; partial flags fill in the
	// missing half.
	username := viper.GetString("username")
	password := viper.GetString("password")
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Warn().Msg("no credentials provided and stdin is not a terminal, credentials will be blank")
		return secrets.NewStaticStore(username, password)
	}

	var err error
	if username == "" {
		if username, err = promptUsername(); err != nil {
			log.Error().Err(err).Msg("failed to read username")
		}
	}
	if password == "" {
		if password, err = promptPassword(username); err != nil {
			log.Error().Err(err).Msg("failed to read password")
		}
	}
	return secrets.NewStaticStore(username, password)
}

func promptUsername() (string, error) {
	fmt.Fprint(os.Stderr, "Enter username for iPDU: ")
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(username), nil
}

func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Enter password for %s: ", username)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

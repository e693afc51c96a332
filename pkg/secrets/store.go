// Package secrets stores PDU credentials, either as an encrypted JSON
// file on disk or as a fixed username/password pair supplied on the
// command line. Secrets are keyed by the PDU host they belong to, with
// a reserved default key used as a fallback for hosts without their
// own entry.
package secrets

import (
	"fmt"
	"os"
)

// DEFAULT_KEY is the secret ID holding credentials used for any PDU
// without host-specific credentials.
const DEFAULT_KEY = "default"

type SecretStore interface {
	GetSecretByID(secretID string) (string, error)
	StoreSecretByID(secretID, secret string) error
	ListSecrets() (map[string]string, error)
	RemoveSecretByID(secretID string) error
}

// OpenStore creates or opens a LocalSecretStore using the master key
// from the MASTER_KEY environment variable.
func OpenStore(filename string) (SecretStore, error) {
	if filename == "" {
		return nil, fmt.Errorf("path to secret store required")
	}

	masterKey := os.Getenv("MASTER_KEY")
	if masterKey == "" {
		return nil, fmt.Errorf("MASTER_KEY environment variable not set")
	}

	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create new local secret store: %v", err)
	}
	return store, nil
}

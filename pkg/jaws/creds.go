package jaws

import (
	"encoding/json"

	"github.com/OpenCHAMI/pductl/pkg/secrets"
	"github.com/rs/zerolog/log"
)

// Credentials for the JAWS interface of one PDU. Stored in the secret
// store as JSON keyed by the PDU host.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GetCredentials fetches credentials for the given PDU host, falling
// back to the store's default entry when no host-specific secret
// exists. Missing credentials come back blank; the controller will
// reject the request with 401 and the failure is reported per target.
func GetCredentials(store secrets.SecretStore, id string) Credentials {
	var creds Credentials
	if store == nil {
		log.Warn().Str("id", id).Msg("no secret store configured, credentials will be blank")
		return creds
	}

	secret, err := store.GetSecretByID(id)
	if err != nil {
		log.Debug().Str("id", id).Msg("specific credentials not found, falling back to default")
		secret, err = store.GetSecretByID(secrets.DEFAULT_KEY)
		if err != nil {
			log.Warn().Str("id", id).Err(err).Msg("no default credentials were set, they will be blank unless overridden by CLI flags")
			return creds
		}
	}

	if err := json.Unmarshal([]byte(secret), &creds); err != nil {
		log.Error().Str("id", id).Err(err).Msg("failed to unmarshal credentials")
	}
	return creds
}

package secrets

import "fmt"

// StaticStore serves one fixed username/password pair for every
// secret ID. It backs the --username/--password CLI flags.
type StaticStore struct {
	Username string
	Password string
}

func NewStaticStore(username, password string) *StaticStore {
	return &StaticStore{
		Username: username,
		Password: password,
	}
}

func (s *StaticStore) GetSecretByID(secretID string) (string, error) {
	return fmt.Sprintf(`{"username":"%s","password":"%s"}`, s.Username, s.Password), nil
}

func (s *StaticStore) StoreSecretByID(secretID, secret string) error {
	return nil
}

func (s *StaticStore) ListSecrets() (map[string]string, error) {
	return map[string]string{
		DEFAULT_KEY: fmt.Sprintf(`{"username":"%s","password":"%s"}`, s.Username, s.Password),
	}, nil
}

func (s *StaticStore) RemoveSecretByID(secretID string) error {
	return nil
}

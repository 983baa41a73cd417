package account

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/joaoalves/claude-use-bar/internal/secrets"
)

// ServicePrefix is the keychain service prefix for app-owned account
// credentials. Each account gets its own service entry:
// ServicePrefix + "." + accountID.
const ServicePrefix = "com.joaoalves.claudeusebar.account"

// ErrCredentialsNotFound is returned when no credentials are stored for an
// account.
var ErrCredentialsNotFound = errors.New("account credentials not found")

// CredentialStore persists per-account Credentials in the secret store,
// keyed by account id.
type CredentialStore struct {
	store secrets.Store
}

// NewCredentialStore wraps a secret store with per-account credential
// serialization.
func NewCredentialStore(store secrets.Store) *CredentialStore {
	return &CredentialStore{store: store}
}

func credentialService(id uuid.UUID) string {
	return ServicePrefix + "." + id.String()
}

// Save stores credentials for the given account id, replacing any existing
// entry.
func (s *CredentialStore) Save(id uuid.UUID, creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.store.Set(credentialService(id), id.String(), data); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Read loads credentials for the given account id. Returns
// ErrCredentialsNotFound if none are stored.
func (s *CredentialStore) Read(id uuid.UUID) (Credentials, error) {
	data, err := s.store.Get(credentialService(id), id.String())
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return Credentials{}, ErrCredentialsNotFound
		}
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

// Delete removes credentials for the given account id. Deleting missing
// credentials is not an error.
func (s *CredentialStore) Delete(id uuid.UUID) error {
	if err := s.store.Delete(credentialService(id), id.String()); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

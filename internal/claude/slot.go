package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/secrets"
)

// SlotService is the keychain service name Claude Code stores its active
// credentials under. The slot has exactly one logical key: whichever
// account is currently active.
const SlotService = "Claude Code-credentials"

// ErrSlotNotFound is returned when the external credentials slot is empty.
var ErrSlotNotFound = errors.New("Claude Code credentials not found")

// SlotStore is the single-slot secret store holding Claude Code's active
// credentials. Only the switch transaction writes it.
type SlotStore struct {
	store   secrets.Store
	account string
}

// NewSlotStore returns a slot store keyed by the current OS username, which
// is how Claude Code addresses its keychain entry.
func NewSlotStore(store secrets.Store) *SlotStore {
	return NewSlotStoreForAccount(store, currentUsername())
}

// NewSlotStoreForAccount returns a slot store keyed by an explicit keychain
// account name.
func NewSlotStoreForAccount(store secrets.Store, accountName string) *SlotStore {
	return &SlotStore{store: store, account: accountName}
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// ReadCredentials decodes the slot's current credentials.
func (s *SlotStore) ReadCredentials() (account.Credentials, error) {
	data, err := s.ReadRaw()
	if err != nil {
		return account.Credentials{}, err
	}
	var creds account.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return account.Credentials{}, fmt.Errorf("decode Claude Code credentials: %w", err)
	}
	return creds, nil
}

// WriteCredentials serializes credentials into the slot.
func (s *SlotStore) WriteCredentials(creds account.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode Claude Code credentials: %w", err)
	}
	return s.WriteRaw(data)
}

// ReadRaw returns the slot's raw bytes, for backup purposes.
func (s *SlotStore) ReadRaw() ([]byte, error) {
	data, err := s.store.Get(SlotService, s.account)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("read Claude Code credentials: %w", err)
	}
	return data, nil
}

// WriteRaw replaces the slot's bytes, for backup restoration.
func (s *SlotStore) WriteRaw(data []byte) error {
	if err := s.store.Set(SlotService, s.account, data); err != nil {
		return fmt.Errorf("write Claude Code credentials: %w", err)
	}
	return nil
}

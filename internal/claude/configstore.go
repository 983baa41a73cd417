package claude

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joaoalves/claude-use-bar/internal/fileutil"
)

const oauthAccountField = "oauthAccount"

// ErrMissingOAuthAccount is returned when the configuration document has no
// oauthAccount field.
var ErrMissingOAuthAccount = errors.New("oauthAccount field not found in configuration")

// ErrInvalidConfig is returned when the configuration document's top-level
// value is not a JSON object.
var ErrInvalidConfig = errors.New("configuration document is not a JSON object")

// ConfigStore reads and writes the Claude Code configuration document.
// Only the oauthAccount field is interpreted; writes replace that field and
// preserve everything else losslessly. The document is owned by Claude
// Code, so writes are minimal read-modify-write cycles and always atomic.
type ConfigStore struct {
	path string
}

// NewConfigStore resolves the installed configuration path and returns a
// store over it.
func NewConfigStore() (*ConfigStore, error) {
	path, err := ResolveConfigPath()
	if err != nil {
		return nil, err
	}
	return NewConfigStoreAt(path), nil
}

// NewConfigStoreAt returns a store over an explicit configuration path.
func NewConfigStoreAt(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Path returns the configuration file path this store operates on.
func (s *ConfigStore) Path() string {
	return s.path
}

// ReadOAuthAccount extracts the active-account descriptor from the
// configuration document.
func (s *ConfigStore) ReadOAuthAccount() (OAuthAccount, error) {
	doc, err := s.readDocument()
	if err != nil {
		return OAuthAccount{}, err
	}

	raw, ok := doc[oauthAccountField]
	if !ok {
		return OAuthAccount{}, ErrMissingOAuthAccount
	}

	// Re-encode just the subtree to decode it into the typed descriptor.
	data, err := json.Marshal(raw)
	if err != nil {
		return OAuthAccount{}, fmt.Errorf("encode oauthAccount: %w", err)
	}
	var acct OAuthAccount
	if err := json.Unmarshal(data, &acct); err != nil {
		return OAuthAccount{}, fmt.Errorf("parse oauthAccount: %w", err)
	}
	return acct, nil
}

// WriteOAuthAccount replaces the oauthAccount field and writes the document
// back atomically with every other field unchanged.
func (s *ConfigStore) WriteOAuthAccount(acct OAuthAccount) error {
	doc, err := s.readDocument()
	if err != nil {
		return err
	}

	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode oauthAccount: %w", err)
	}
	var subtree map[string]any
	if err := json.Unmarshal(data, &subtree); err != nil {
		return fmt.Errorf("encode oauthAccount: %w", err)
	}
	doc[oauthAccountField] = subtree

	updated, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return s.WriteRaw(updated)
}

// ReadRaw returns the raw bytes of the configuration document, for backup
// purposes.
func (s *ConfigStore) ReadRaw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, s.path)
		}
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return data, nil
}

// WriteRaw atomically replaces the configuration document with the given
// bytes, for backup restoration.
func (s *ConfigStore) WriteRaw(data []byte) error {
	if err := fileutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	return nil
}

// readDocument decodes the whole document. json.Number preserves numeric
// fields exactly across the read-modify-write cycle.
func (s *ConfigStore) readDocument() (map[string]any, error) {
	data, err := s.ReadRaw()
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrInvalidConfig
		}
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return doc, nil
}

package claude

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "numStartups": 42,
  "installMethod": "native",
  "largeCounter": 9007199254740993,
  "oauthAccount": {
    "accountUuid": "uuid-old",
    "emailAddress": "old@x.com",
    "displayName": "Old",
    "organizationRole": "admin"
  },
  "projects": {
    "/home/me/code": {"allowedTools": ["Bash"]}
  }
}`

func newTestConfigStore(t *testing.T, contents string) *ConfigStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".claude.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return NewConfigStoreAt(path)
}

func TestReadOAuthAccount(t *testing.T) {
	store := newTestConfigStore(t, sampleConfig)

	acct, err := store.ReadOAuthAccount()
	require.NoError(t, err)
	assert.Equal(t, "uuid-old", acct.AccountUUID)
	assert.Equal(t, "old@x.com", acct.EmailAddress)
	assert.Equal(t, "Old", acct.DisplayName)
	require.NotNil(t, acct.OrganizationRole)
	assert.Equal(t, "admin", *acct.OrganizationRole)
	assert.Nil(t, acct.OrganizationUUID)
}

func TestReadOAuthAccountMissingField(t *testing.T) {
	store := newTestConfigStore(t, `{"numStartups": 1}`)
	_, err := store.ReadOAuthAccount()
	assert.ErrorIs(t, err, ErrMissingOAuthAccount)
}

func TestReadOAuthAccountTopLevelNotObject(t *testing.T) {
	store := newTestConfigStore(t, `[1, 2, 3]`)
	_, err := store.ReadOAuthAccount()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReadOAuthAccountMissingFile(t *testing.T) {
	store := NewConfigStoreAt(filepath.Join(t.TempDir(), "nope.json"))
	_, err := store.ReadOAuthAccount()
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestWriteOAuthAccountPreservesOtherFields(t *testing.T) {
	store := newTestConfigStore(t, sampleConfig)

	orgName := "Acme"
	require.NoError(t, store.WriteOAuthAccount(OAuthAccount{
		AccountUUID:      "uuid-new",
		EmailAddress:     "new@x.com",
		DisplayName:      "New",
		OrganizationName: &orgName,
	}))

	data, err := store.ReadRaw()
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.JSONEq(t, `42`, string(doc["numStartups"]))
	assert.JSONEq(t, `"native"`, string(doc["installMethod"]))
	assert.Equal(t, "9007199254740993", string(doc["largeCounter"]),
		"large integers must survive the round trip exactly")
	assert.JSONEq(t, `{"/home/me/code": {"allowedTools": ["Bash"]}}`, string(doc["projects"]))

	acct, err := store.ReadOAuthAccount()
	require.NoError(t, err)
	assert.Equal(t, "uuid-new", acct.AccountUUID)
	assert.Equal(t, "new@x.com", acct.EmailAddress)
	require.NotNil(t, acct.OrganizationName)
	assert.Equal(t, "Acme", *acct.OrganizationName)
	assert.Nil(t, acct.OrganizationRole, "replaced descriptor must not inherit old optionals")
}

func TestWriteRawRestoresBackupExactly(t *testing.T) {
	store := newTestConfigStore(t, sampleConfig)

	backup, err := store.ReadRaw()
	require.NoError(t, err)

	require.NoError(t, store.WriteOAuthAccount(OAuthAccount{
		AccountUUID: "uuid-new", EmailAddress: "new@x.com", DisplayName: "New",
	}))
	require.NoError(t, store.WriteRaw(backup))

	restored, err := store.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, backup, restored)
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	store := newTestConfigStore(t, sampleConfig)
	require.NoError(t, store.WriteOAuthAccount(OAuthAccount{
		AccountUUID: "u", EmailAddress: "e@x.com", DisplayName: "D",
	}))
	_, err := os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestResolveConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := ResolveConfigPath()
	assert.ErrorIs(t, err, ErrConfigNotFound)

	fallback := filepath.Join(home, ".claude.json")
	require.NoError(t, os.WriteFile(fallback, []byte("{}"), 0o600))
	path, err := ResolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, fallback, path)

	preferred := filepath.Join(home, ".claude", ".claude.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(preferred), 0o755))
	require.NoError(t, os.WriteFile(preferred, []byte("{}"), 0o600))
	path, err = ResolveConfigPath()
	require.NoError(t, err)
	assert.Equal(t, preferred, path, "the .claude dir location wins when both exist")
}

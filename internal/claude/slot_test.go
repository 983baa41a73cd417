package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/secrets"
)

func TestSlotStoreRoundTrip(t *testing.T) {
	slot := NewSlotStoreForAccount(secrets.NewMemoryStore(), "tester")

	_, err := slot.ReadRaw()
	assert.ErrorIs(t, err, ErrSlotNotFound)

	creds := account.Credentials{ClaudeAiOauth: account.OAuthToken{
		AccessToken:  "tok",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
	}}
	require.NoError(t, slot.WriteCredentials(creds))

	got, err := slot.ReadCredentials()
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestSlotStoreRawBackupRestore(t *testing.T) {
	slot := NewSlotStoreForAccount(secrets.NewMemoryStore(), "tester")

	original := []byte(`{"claudeAiOauth":{"accessToken":"tok-1"}}`)
	require.NoError(t, slot.WriteRaw(original))

	require.NoError(t, slot.WriteCredentials(account.Credentials{
		ClaudeAiOauth: account.OAuthToken{AccessToken: "tok-2"},
	}))
	require.NoError(t, slot.WriteRaw(original))

	restored, err := slot.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, original, restored, "restore must be byte-identical")
}

func TestSlotStoreDecodeError(t *testing.T) {
	slot := NewSlotStoreForAccount(secrets.NewMemoryStore(), "tester")
	require.NoError(t, slot.WriteRaw([]byte("not json")))
	_, err := slot.ReadCredentials()
	assert.Error(t, err)
}

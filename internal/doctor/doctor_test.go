package doctor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/claude"
	"github.com/joaoalves/claude-use-bar/internal/fileutil"
	"github.com/joaoalves/claude-use-bar/internal/secrets"
	"github.com/joaoalves/claude-use-bar/internal/usage"
)

type stubFetcher struct {
	snapshot *usage.Snapshot
	err      error
}

func (s *stubFetcher) FetchUsage(context.Context, string) (*usage.Snapshot, error) {
	return s.snapshot, s.err
}

func checkByName(t *testing.T, report Report, name string) Check {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q in %+v", name, report.Checks)
	return Check{}
}

func TestRunHealthyEnvironment(t *testing.T) {
	store := secrets.NewMemoryStore()

	configPath := filepath.Join(t.TempDir(), ".claude.json")
	require.NoError(t, fileutil.WriteFileAtomic(configPath, []byte(`{
		"oauthAccount": {"accountUuid": "u1", "emailAddress": "a@x.com", "displayName": "A"}
	}`), 0o600))

	slot := claude.NewSlotStore(store)
	require.NoError(t, slot.WriteCredentials(account.Credentials{
		ClaudeAiOauth: account.OAuthToken{AccessToken: "tok"},
	}))

	accountsPath := filepath.Join(t.TempDir(), "accounts.json")
	reg, err := account.LoadRegistry(accountsPath, account.NewCredentialStore(store))
	require.NoError(t, err)
	_, err = reg.Add(
		account.New("a@x.com", "u1", "A", ""),
		account.Credentials{ClaudeAiOauth: account.OAuthToken{AccessToken: "tok"}},
	)
	require.NoError(t, err)

	report := Run(context.Background(), Options{
		ConfigPath:   configPath,
		AccountsFile: accountsPath,
		SecretStore:  store,
		Fetcher:      &stubFetcher{snapshot: &usage.Snapshot{FiveHour: usage.Period{Utilization: 0.42}}},
	})

	assert.True(t, report.Healthy())
	assert.True(t, checkByName(t, report, "secret store").OK)
	assert.Contains(t, checkByName(t, report, "claude config").Details, "a@x.com")
	assert.True(t, checkByName(t, report, "credentials slot").OK)
	assert.Contains(t, checkByName(t, report, "accounts file").Details, "1 account(s)")
	assert.Contains(t, checkByName(t, report, "usage fetch").Details, "42%")
}

func TestRunMissingConfigAndSlot(t *testing.T) {
	report := Run(context.Background(), Options{
		ConfigPath:   filepath.Join(t.TempDir(), "nope.json"),
		AccountsFile: filepath.Join(t.TempDir(), "accounts.json"),
		SecretStore:  secrets.NewMemoryStore(),
	})

	assert.False(t, report.Healthy())
	assert.False(t, checkByName(t, report, "claude config").OK)
	assert.False(t, checkByName(t, report, "credentials slot").OK)

	// With no token there is nothing to fetch with.
	for _, c := range report.Checks {
		assert.NotEqual(t, "usage fetch", c.Name)
	}
}

func TestRunFetchFailureIsReportedNotFatal(t *testing.T) {
	store := secrets.NewMemoryStore()
	slot := claude.NewSlotStore(store)
	require.NoError(t, slot.WriteCredentials(account.Credentials{
		ClaudeAiOauth: account.OAuthToken{AccessToken: "tok"},
	}))

	configPath := filepath.Join(t.TempDir(), ".claude.json")
	require.NoError(t, fileutil.WriteFileAtomic(configPath, []byte(`{
		"oauthAccount": {"accountUuid": "u1", "emailAddress": "a@x.com", "displayName": "A"}
	}`), 0o600))

	report := Run(context.Background(), Options{
		ConfigPath:   configPath,
		AccountsFile: filepath.Join(t.TempDir(), "accounts.json"),
		SecretStore:  store,
		Fetcher:      &stubFetcher{err: errors.New("boom")},
	})

	fetch := checkByName(t, report, "usage fetch")
	assert.False(t, fetch.OK)
	assert.Contains(t, fetch.Details, "boom")
	assert.True(t, report.Healthy(), "a failed fetch does not make the setup unhealthy")
}

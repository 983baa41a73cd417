// Package doctor runs environment diagnostics: is Claude Code installed,
// are its credentials reachable, is the account registry usable, and does
// the usage endpoint answer.
package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/claude"
	"github.com/joaoalves/claude-use-bar/internal/secrets"
	"github.com/joaoalves/claude-use-bar/internal/usage"
)

// Check is one diagnostic result.
type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details"`
}

// Report is the full diagnostic outcome.
type Report struct {
	Checks []Check `json:"checks"`
}

// Healthy reports whether the local setup can monitor and switch accounts:
// the configuration and the credentials slot must both be readable.
func (r Report) Healthy() bool {
	var configOK, slotOK bool
	for _, c := range r.Checks {
		switch c.Name {
		case "claude config":
			configOK = c.OK
		case "credentials slot":
			slotOK = c.OK
		}
	}
	return configOK && slotOK
}

// Options carries the collaborators to diagnose. Zero-value fields fall
// back to the real environment.
type Options struct {
	ConfigPath   string
	AccountsFile string
	SecretStore  secrets.Store
	Fetcher      usage.Fetcher
	FetchTimeout time.Duration
}

// Run executes all checks and never fails; problems land in the report.
func Run(ctx context.Context, opts Options) Report {
	if opts.SecretStore == nil {
		opts.SecretStore = secrets.NewPlatformStore()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 8 * time.Second
	}
	if opts.Fetcher == nil {
		opts.Fetcher = usage.NewClient(opts.FetchTimeout)
	}

	var checks []Check
	checks = append(checks, checkSecretStore(opts.SecretStore))
	checks = append(checks, checkConfig(opts.ConfigPath))

	slotCheck, token := checkSlot(opts.SecretStore)
	checks = append(checks, slotCheck)

	checks = append(checks, checkRegistry(opts.AccountsFile, opts.SecretStore))
	checks = append(checks, checkProcesses())

	if token != "" {
		checks = append(checks, checkUsageFetch(ctx, opts.Fetcher, token, opts.FetchTimeout))
	}

	return Report{Checks: checks}
}

func checkSecretStore(store secrets.Store) Check {
	if !store.IsSupported() {
		return Check{Name: "secret store", OK: false,
			Details: "no secure credential storage on this platform"}
	}
	return Check{Name: "secret store", OK: true, Details: "available"}
}

func checkConfig(override string) Check {
	path := override
	if path == "" {
		resolved, err := claude.ResolveConfigPath()
		if err != nil {
			return Check{Name: "claude config", OK: false, Details: err.Error()}
		}
		path = resolved
	}

	acct, err := claude.NewConfigStoreAt(path).ReadOAuthAccount()
	if err != nil {
		return Check{Name: "claude config", OK: false,
			Details: fmt.Sprintf("found %s but could not read oauthAccount: %v", path, err)}
	}
	return Check{Name: "claude config", OK: true,
		Details: fmt.Sprintf("active account %s", acct.EmailAddress)}
}

func checkSlot(store secrets.Store) (Check, string) {
	slot := claude.NewSlotStore(store)
	creds, err := slot.ReadCredentials()
	if err != nil {
		return Check{Name: "credentials slot", OK: false, Details: err.Error()}, ""
	}
	if creds.AccessToken() == "" {
		return Check{Name: "credentials slot", OK: false,
			Details: "slot exists but holds no access token"}, ""
	}
	return Check{Name: "credentials slot", OK: true, Details: "access token present"}, creds.AccessToken()
}

func checkRegistry(path string, store secrets.Store) Check {
	if path == "" {
		return Check{Name: "accounts file", OK: false, Details: "no accounts file configured"}
	}
	reg, err := account.LoadRegistry(path, account.NewCredentialStore(store))
	if err != nil {
		return Check{Name: "accounts file", OK: false, Details: err.Error()}
	}
	return Check{Name: "accounts file", OK: true,
		Details: fmt.Sprintf("%d account(s) at %s", len(reg.Accounts()), path)}
}

func checkProcesses() Check {
	pids, err := claude.PgrepDetector{}.Processes()
	if err != nil {
		return Check{Name: "claude process", OK: true,
			Details: fmt.Sprintf("detection unavailable: %v", err)}
	}
	if len(pids) == 0 {
		return Check{Name: "claude process", OK: true, Details: "not running"}
	}
	return Check{Name: "claude process", OK: true,
		Details: fmt.Sprintf("running (%d process(es)); switching requires force or a restart", len(pids))}
}

func checkUsageFetch(parent context.Context, fetcher usage.Fetcher, token string, timeout time.Duration) Check {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	snapshot, err := fetcher.FetchUsage(ctx, token)
	if err != nil {
		return Check{Name: "usage fetch", OK: false, Details: err.Error()}
	}
	return Check{Name: "usage fetch", OK: true,
		Details: fmt.Sprintf("5h window at %d%%", snapshot.UtilizationPercent())}
}

// Package cmd provides the CLI commands for claude-use-bar.
package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/claude"
	"github.com/joaoalves/claude-use-bar/internal/config"
	"github.com/joaoalves/claude-use-bar/internal/logging"
	"github.com/joaoalves/claude-use-bar/internal/secrets"
)

var (
	// Global flags
	accountsFile     string
	claudeConfigPath string
	logLevel         string
	logFile          string

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "claude-use-bar",
	Short: "Manage and monitor multiple Claude Code accounts",
	Long: `claude-use-bar keeps a registry of Claude Code accounts, watches
their usage windows, and switches which account Claude Code runs as.

Switching rewrites the Claude Code credential slot and configuration
atomically; Claude Code must be restarted afterwards to pick it up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if accountsFile != "" {
			cfg.AccountsFile = accountsFile
		}
		if claudeConfigPath != "" {
			cfg.ClaudeConfigPath = claudeConfigPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logFile != "" {
			cfg.LogFile = logFile
		}

		logging.Initialize(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&accountsFile, "accounts-file", "", "path to the account registry file")
	rootCmd.PersistentFlags().StringVar(&claudeConfigPath, "claude-config", "", "path to the Claude Code configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also log to this file, with rotation")
}

// app bundles the wired stores every command works against.
type app struct {
	secrets  secrets.Store
	registry *account.Registry
	slot     *claude.SlotStore
}

func newApp() (*app, error) {
	store := secrets.NewPlatformStore()

	registry, err := account.LoadRegistry(cfg.AccountsFile, account.NewCredentialStore(store))
	if err != nil {
		return nil, fmt.Errorf("load account registry: %w", err)
	}

	return &app{
		secrets:  store,
		registry: registry,
		slot:     claude.NewSlotStore(store),
	}, nil
}

// claudeConfig opens the Claude Code configuration store, honoring the
// --claude-config override.
func (a *app) claudeConfig() (*claude.ConfigStore, error) {
	if cfg.ClaudeConfigPath != "" {
		return claude.NewConfigStoreAt(cfg.ClaudeConfigPath), nil
	}
	return claude.NewConfigStore()
}

// resolveAccount accepts an email address or an account ID.
func resolveAccount(registry *account.Registry, ref string) (account.Account, error) {
	if acct, err := registry.ByEmail(ref); err == nil {
		return acct, nil
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return account.Account{}, fmt.Errorf("no account with email or id %q", ref)
	}
	return registry.ByID(id)
}

// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const appDirName = "ClaudeUseBar"

// Config holds the runtime configuration. Every field has a working
// default; the environment only overrides.
type Config struct {
	// PollInterval is how often the poll engine refreshes all accounts.
	PollInterval time.Duration `env:"CLAUDEUSEBAR_POLL_INTERVAL" envDefault:"45s"`
	// CacheTTL is the maximum age at which a cached snapshot is fresh.
	CacheTTL time.Duration `env:"CLAUDEUSEBAR_CACHE_TTL" envDefault:"60s"`
	// FetchTimeout bounds each usage request.
	FetchTimeout time.Duration `env:"CLAUDEUSEBAR_FETCH_TIMEOUT" envDefault:"10s"`
	// AccountsFile overrides the registry file location.
	AccountsFile string `env:"CLAUDEUSEBAR_ACCOUNTS_FILE"`
	// ClaudeConfigPath overrides Claude Code configuration discovery.
	ClaudeConfigPath string `env:"CLAUDEUSEBAR_CLAUDE_CONFIG"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `env:"CLAUDEUSEBAR_LOG_LEVEL" envDefault:"info"`
	// LogFile enables rotated file logging when set.
	LogFile string `env:"CLAUDEUSEBAR_LOG_FILE"`
}

// Load reads an optional .env file, then the environment, and validates
// the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", cfg.CacheTTL)
	}
	if cfg.FetchTimeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got %s", cfg.FetchTimeout)
	}

	if cfg.AccountsFile == "" {
		path, err := defaultAccountsFile()
		if err != nil {
			return nil, err
		}
		cfg.AccountsFile = path
	}
	return cfg, nil
}

// defaultAccountsFile is <user config dir>/ClaudeUseBar/accounts.json,
// which on macOS resolves under ~/Library/Application Support like the
// original app data location.
func defaultAccountsFile() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, "accounts.json"), nil
}

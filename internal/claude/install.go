// Package claude wraps the surfaces of a local Claude Code installation
// that this tool reads and writes: the JSON configuration document, the
// keychain slot holding the active credentials, and the running-process
// check.
package claude

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrConfigNotFound is returned when no Claude Code configuration file
// exists at any known location.
var ErrConfigNotFound = errors.New("Claude Code configuration file not found")

// ResolveConfigPath returns the Claude Code configuration file path.
// ~/.claude/.claude.json is preferred; ~/.claude.json is the fallback.
// The first existing candidate wins.
func ResolveConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	candidates := []string{
		filepath.Join(home, ".claude", ".claude.json"),
		filepath.Join(home, ".claude.json"),
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", ErrConfigNotFound
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

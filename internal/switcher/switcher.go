// Package switcher changes which account's credentials and descriptor are
// active in Claude Code, with backup and rollback across the keychain slot
// and the configuration document.
package switcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joaoalves/claude-use-bar/internal/account"
	"github.com/joaoalves/claude-use-bar/internal/claude"
)

// ErrClaudeRunning is returned when Claude Code is running and force was
// not set. A running instance could overwrite the switch mid-flight.
var ErrClaudeRunning = errors.New("Claude Code is running; close it or retry with force")

// ErrCredentialsNotFound is returned when the target account has no stored
// credentials.
var ErrCredentialsNotFound = errors.New("target account credentials not found")

// BackupError is returned when the pre-switch state of either resource
// could not be captured. Nothing has been mutated.
type BackupError struct {
	Err error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup of current state failed: %v", e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// SecretWriteError is returned when writing the target credentials into the
// keychain slot failed. The configuration still points at the old account,
// so the failure is safe to retry.
type SecretWriteError struct {
	Err error
}

func (e *SecretWriteError) Error() string {
	return fmt.Sprintf("keychain update failed: %v", e.Err)
}

func (e *SecretWriteError) Unwrap() error { return e.Err }

// ConfigWriteError is returned when the configuration write failed and the
// keychain slot was rolled back to its pre-switch bytes.
type ConfigWriteError struct {
	Err error
}

func (e *ConfigWriteError) Error() string {
	return fmt.Sprintf("configuration update failed (keychain rolled back): %v", e.Err)
}

func (e *ConfigWriteError) Unwrap() error { return e.Err }

// RollbackError is the fatal case: the configuration write failed and the
// keychain rollback failed too, leaving the slot and the configuration
// pointing at different accounts. Manual intervention is required.
type RollbackError struct {
	ConfigErr   error
	RollbackErr error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf(
		"CRITICAL: keychain rollback failed after configuration write error; keychain and configuration are inconsistent: rollback: %v (configuration: %v)",
		e.RollbackErr, e.ConfigErr)
}

// ConfigStore is the configuration surface the transaction needs.
type ConfigStore interface {
	ReadRaw() ([]byte, error)
	WriteRaw(data []byte) error
	WriteOAuthAccount(acct claude.OAuthAccount) error
}

// SlotStore is the external keychain slot surface the transaction needs.
type SlotStore interface {
	ReadRaw() ([]byte, error)
	WriteRaw(data []byte) error
	WriteCredentials(creds account.Credentials) error
}

// ProcessDetector reports whether Claude Code is currently running.
type ProcessDetector interface {
	IsRunning() bool
}

// Registry is the account registry surface the transaction needs.
type Registry interface {
	ByID(id uuid.UUID) (account.Account, error)
	Credentials(id uuid.UUID) (account.Credentials, error)
	MarkUsed(id uuid.UUID) error
}

// Result reports a committed switch.
type Result struct {
	Account account.Account
	// RequiresRestart is always true on success: Claude Code caches its
	// credentials in memory and must be restarted to pick up the new ones.
	RequiresRestart bool
}

// Switcher runs the switch transaction. The slot and the configuration
// document are a single-writer resource, so at most one transaction runs
// at a time process-wide.
type Switcher struct {
	mu       sync.Mutex
	registry Registry
	config   ConfigStore
	slot     SlotStore
	procs    ProcessDetector
}

// New builds a Switcher over the given collaborators.
func New(registry Registry, config ConfigStore, slot SlotStore, procs ProcessDetector) *Switcher {
	return &Switcher{
		registry: registry,
		config:   config,
		slot:     slot,
		procs:    procs,
	}
}

// Switch activates the account with the given id in Claude Code.
//
// The transaction is linear with one rollback branch: guard, load target
// credentials, back up both resources, write the keychain slot, write the
// configuration. The slot is written first so a partial failure leaves
// Claude Code referencing a descriptor whose secret exists; a failed
// configuration write restores the slot from the backup byte-for-byte.
func (s *Switcher) Switch(id uuid.UUID, force bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Guard: refuse to swap state under a running Claude Code.
	if !force && s.procs.IsRunning() {
		return Result{}, ErrClaudeRunning
	}

	// 2. Load the target account and its credentials.
	target, err := s.registry.ByID(id)
	if err != nil {
		return Result{}, err
	}
	creds, err := s.registry.Credentials(id)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCredentialsNotFound, target.EmailAddress)
	}

	descriptor := claude.OAuthAccount{
		AccountUUID:      target.AccountUUID,
		EmailAddress:     target.EmailAddress,
		DisplayName:      target.DisplayName,
		OrganizationName: optional(target.OrganizationName),
	}

	// 3. Backup: both reads must succeed before anything is written, so
	// rollback material always exists.
	slotBackup, err := s.slot.ReadRaw()
	if err != nil {
		return Result{}, &BackupError{Err: err}
	}
	if _, err := s.config.ReadRaw(); err != nil {
		return Result{}, &BackupError{Err: err}
	}

	// 4. Apply the secret. Nothing else has been mutated, so a failure
	// here needs no rollback.
	if err := s.slot.WriteCredentials(creds); err != nil {
		return Result{}, &SecretWriteError{Err: err}
	}

	// 5. Apply the configuration, rolling the slot back on failure.
	if err := s.config.WriteOAuthAccount(descriptor); err != nil {
		if rollbackErr := s.slot.WriteRaw(slotBackup); rollbackErr != nil {
			return Result{}, &RollbackError{ConfigErr: err, RollbackErr: rollbackErr}
		}
		return Result{}, &ConfigWriteError{Err: err}
	}

	// 6. Commit. lastUsedAt is best-effort and never undoes the switch.
	if err := s.registry.MarkUsed(target.ID); err != nil {
		slog.Warn("could not update lastUsedAt after switch",
			"account", target.EmailAddress, "error", err)
	}

	slog.Info("switched active account", "account", target.EmailAddress)
	return Result{Account: target, RequiresRestart: true}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package secrets provides a platform-abstracted interface for secure
// credential storage. On macOS, items are stored in the system Keychain.
// Other platforms get a no-op store; callers should check IsSupported.
package secrets

import "errors"

// ErrNotFound is returned when an item does not exist in the store.
var ErrNotFound = errors.New("secret not found")

// ErrNotSupported is returned when no secret store is available on the
// current platform.
var ErrNotSupported = errors.New("secret store not supported on this platform")

// Store is opaque key-value secret storage addressed by a (service, account)
// pair. Values are raw bytes; callers own serialization. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get retrieves the item for the given service and account.
	// Returns ErrNotFound if it does not exist.
	Get(service, account string) ([]byte, error)

	// Set stores an item for the given service and account, replacing any
	// existing value.
	Set(service, account string, data []byte) error

	// Delete removes the item for the given service and account.
	// Deleting a missing item is not an error.
	Delete(service, account string) error

	// IsSupported reports whether this store is functional on the current
	// platform.
	IsSupported() bool
}

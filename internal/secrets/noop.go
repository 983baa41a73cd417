package secrets

// NoopStore is a no-op implementation of Store for unsupported platforms.
// All operations return ErrNotSupported, and IsSupported returns false.
type NoopStore struct{}

// Get returns ErrNotSupported.
func (n *NoopStore) Get(service, account string) ([]byte, error) {
	return nil, ErrNotSupported
}

// Set returns ErrNotSupported.
func (n *NoopStore) Set(service, account string, data []byte) error {
	return ErrNotSupported
}

// Delete returns ErrNotSupported.
func (n *NoopStore) Delete(service, account string) error {
	return ErrNotSupported
}

// IsSupported returns false.
func (n *NoopStore) IsSupported() bool {
	return false
}

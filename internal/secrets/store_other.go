//go:build !darwin

package secrets

// NewPlatformStore returns the no-op store on platforms without a supported
// secret backend.
func NewPlatformStore() Store {
	return &NoopStore{}
}

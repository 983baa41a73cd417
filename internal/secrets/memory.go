package secrets

import "sync"

// MemoryStore is an in-memory Store used by tests and as an explicit
// opt-in fallback where no OS secret backend exists. Values are copied on
// the way in and out.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}}
}

func memoryKey(service, account string) string {
	return service + "\x00" + account
}

// Get retrieves an item. Returns ErrNotFound if it does not exist.
func (m *MemoryStore) Get(service, account string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[memoryKey(service, account)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Set stores an item, replacing any existing value.
func (m *MemoryStore) Set(service, account string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.items[memoryKey(service, account)] = stored
	return nil
}

// Delete removes an item. Deleting a missing item is not an error.
func (m *MemoryStore) Delete(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, memoryKey(service, account))
	return nil
}

// IsSupported returns true.
func (m *MemoryStore) IsSupported() bool {
	return true
}

package retryq

import "sync"

type memoryStore struct {
	mu    sync.Mutex
	items []PendingRequest
}

// NewInMemoryStore returns a Store with no durability across restarts, for
// tests and for running without a local database.
func NewInMemoryStore() Store {
	return &memoryStore{}
}

func (m *memoryStore) Load() ([]PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PendingRequest(nil), m.items...), nil
}

func (m *memoryStore) Save(items []PendingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]PendingRequest(nil), items...)
	return nil
}

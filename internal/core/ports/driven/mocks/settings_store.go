package mocks

import (
	"context"
	"maps"
	"sync"
)

// MockSyncConfigStore is a mock implementation of SyncConfigStore for testing
type MockSyncConfigStore struct {
	mu     sync.RWMutex
	values map[string]string
	reads  int

	GetAllFn func() (map[string]string, error)
}

// NewMockSyncConfigStore creates a new MockSyncConfigStore
func NewMockSyncConfigStore() *MockSyncConfigStore {
	return &MockSyncConfigStore{
		values: make(map[string]string),
	}
}

func (m *MockSyncConfigStore) GetAll(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()
	if m.GetAllFn != nil {
		return m.GetAllFn()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values), nil
}

func (m *MockSyncConfigStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Value returns a stored value
func (m *MockSyncConfigStore) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Reads returns how many times GetAll was called
func (m *MockSyncConfigStore) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}

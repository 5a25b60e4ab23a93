package mocks

import (
	"context"
	"sync"
)

// MockKeyValueStore is a mock implementation of store.KeyValueStore for testing
type MockKeyValueStore struct {
	mu   sync.RWMutex
	data map[string]string

	// For tracking calls in tests
	GetCalls    []string
	SetCalls    []SetCall
	DeleteCalls []string

	// Errors returned instead of touching data
	GetErr    error
	SetErr    error
	DeleteErr error
}

// SetCall records parameters passed to Set
type SetCall struct {
	Key   string
	Value string
}

// NewMockKeyValueStore creates a new MockKeyValueStore
func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{
		data:        make(map[string]string),
		GetCalls:    make([]string, 0),
		SetCalls:    make([]SetCall, 0),
		DeleteCalls: make([]string, 0),
	}
}

// Get retrieves a value
func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	value, ok := m.data[key]
	return value, ok, nil
}

// Set stores a value
func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// Delete removes a value
func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.data, key)
	return nil
}

// Seed sets a value directly without recording a call
func (m *MockKeyValueStore) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Value returns the stored value for assertions
func (m *MockKeyValueStore) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok
}

// LastSet returns the most recent Set call
func (m *MockKeyValueStore) LastSet() (SetCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.SetCalls) == 0 {
		return SetCall{}, false
	}
	return m.SetCalls[len(m.SetCalls)-1], true
}

// Reset clears all data, recorded calls and injected errors
func (m *MockKeyValueStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	m.GetCalls = make([]string, 0)
	m.SetCalls = make([]SetCall, 0)
	m.DeleteCalls = make([]string, 0)
	m.GetErr = nil
	m.SetErr = nil
	m.DeleteErr = nil
}

package mocks

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-memory stand-in for the redis lock store.
type MockCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

// NewMockCache creates an empty mock cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]interface{})}
}

// SetNX stores value unless key is already held. Expiration is ignored.
func (m *MockCache) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.data[key]; held {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

// Release removes key only while it still holds token.
func (m *MockCache) Release(_ context.Context, key, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[key] != token {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

// Steal replaces the holder of key, as if the lock expired and another
// replica took it.
func (m *MockCache) Steal(key, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = token
}

// Value returns what key holds.
func (m *MockCache) Value(key string) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// Keys returns the number of keys currently held.
func (m *MockCache) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

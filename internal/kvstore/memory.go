package kvstore

import (
	"context"
	"sync"
)

// Memory is an in-memory Store implementation for tests and ephemeral use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

// GetJSON reads the value at key into dest.
func (m *Memory) GetJSON(ctx context.Context, key string, dest any) error {
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return unmarshalValue(data, dest)
}

// SetJSON writes value at key, replacing any existing value.
func (m *Memory) SetJSON(ctx context.Context, key string, value any) error {
	data, err := marshalValue(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}

// GetJSONList reads the JSON array at key into dest.
func (m *Memory) GetJSONList(ctx context.Context, key string, dest any) error {
	return m.GetJSON(ctx, key, dest)
}

// SetJSONList writes values as a JSON array at key.
func (m *Memory) SetJSONList(ctx context.Context, key string, values any) error {
	return m.SetJSON(ctx, key, values)
}

// Remove deletes the value at key.
func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Ensure Memory implements Store.
var _ Store = (*Memory)(nil)

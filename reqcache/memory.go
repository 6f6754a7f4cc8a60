package reqcache

import (
	"context"
	"errors"
	"sync"

	"github.com/MrEthical07/apolloAuth/internal/codec"
)

// ErrUnavailable is returned when the cache backend cannot be reached.
var ErrUnavailable = errors.New("request cache unavailable")

// Memory is a process-local cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get decodes the value stored at key into dst and reports whether it existed.
func (m *Memory) Get(ctx context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	data, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := codec.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value at key, replacing any previous value.
func (m *Memory) Set(ctx context.Context, key string, value any) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

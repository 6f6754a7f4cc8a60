package tokenslot

import (
	"context"
	"sync"
)

// Memory is a process-local slot. The zero value is an empty slot.
type Memory struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemory returns a slot pre-populated with token. An empty token yields an
// empty slot.
func NewMemory(token string) *Memory {
	return &Memory{token: token, set: token != ""}
}

// Read returns the stored token and whether one is present.
func (m *Memory) Read(ctx context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.set, nil
}

// Write replaces the stored token.
func (m *Memory) Write(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = token != ""
	return nil
}

// Clear empties the slot. Clearing an empty slot is a no-op.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}

package persist

import (
	"context"
	"sync"
)

// Memory is an in-process KV backend. It backs tests and sessions that opt
// out of durable persistence; records live only as long as the process.
type Memory struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]string)}
}

// Get implements KV.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.records[key]
	return value, ok, nil
}

// Put implements KV.
func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = value
	return nil
}

// Delete implements KV.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

package kv

import (
	"context"
	"sync"
)

// Memory is an in-process Store. A positive quota bounds the total size of
// keys and values in bytes.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	size  int
	quota int
}

// NewMemory creates a Memory store; quota <= 0 means unbounded.
func NewMemory(quota int) *Memory {
	return &Memory{data: make(map[string]string), quota: quota}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.size + len(key) + len(value)
	if old, ok := m.data[key]; ok {
		size -= len(key) + len(old)
	}
	if m.quota > 0 && size > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.size = size
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.size -= len(key) + len(old)
		delete(m.data, key)
	}
	return nil
}

// Len reports the number of keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

package store

import (
	"context"
	"errors"
	"sync"

	"mercator-hq/wiretap/pkg/traffic"
)

var errBackendClosed = errors.New("backend closed")

// Backend is a durable key-value store.
// Implementations must be safe for concurrent use; they make no promise about
// read-modify-write atomicity across calls.
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string

	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error


	// Close releases any resources held by the backend.
	Close() error
}

// MemoryBackend implements Backend with an in-memory map.
// It is intended for tests and for running without persistence.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// Name implements Backend.
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Get implements Backend.
func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, traffic.NewStorageError("memory", "get", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, traffic.NewStorageError("memory", "get", errBackendClosed)
	}
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return traffic.NewStorageError("memory", "set", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return traffic.NewStorageError("memory", "set", errBackendClosed)
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.values = make(map[string][]byte)
	return nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryObjectStore keeps objects in-process. Used for local runs and tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryObjectStore initializes an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

// Put stores a copy of r.
func (m *MemoryObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

// Get returns a copy of the stored bytes.
func (m *MemoryObjectStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

// ContentType returns the content type recorded for key.
func (m *MemoryObjectStore) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[key]
}

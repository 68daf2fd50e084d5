package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemStore keeps blobs in memory. It backs fixtures, benchmarks and the
// index builder.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under folder/name. It never fails.
func (m *MemStore) Put(folder, name string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.blobs[Key(folder, name)] = cp
	m.mu.Unlock()
	return nil
}

// Delete removes folder/name if present.
func (m *MemStore) Delete(folder, name string) {
	m.mu.Lock()
	delete(m.blobs, Key(folder, name))
	m.mu.Unlock()
}

// Get returns the stored bytes. Callers must not modify them.
func (m *MemStore) Get(ctx context.Context, folder, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.blobs[Key(folder, name)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Key(folder, name))
	}
	return data, nil
}

// Len returns the number of stored blobs.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStorage keeps blobs in process. It backs local runs without an
// object store and the pipeline tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func (m *MemoryStorage) Upload(_ context.Context, key string, data io.Reader, _ int64, _ string) (*Blob, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return &Blob{Key: key, URL: "memory://" + key, Size: int64(len(b))}, nil
}

func (m *MemoryStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len reports how many blobs are stored.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

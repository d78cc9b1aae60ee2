package storage

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process BlobStore used by tests and local development
// (BLOB_DRIVER=memory). Objects live in a map guarded by a mutex; URLs use a
// fake scheme that survives round-trips through the record store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailUploads, when non-empty, makes Upload fail for keys containing the
	// substring. Lets tests exercise partial-failure paths deterministically.
	FailUploads string
	// FailDeletes mirrors FailUploads for Delete.
	FailDeletes string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

type memFailure struct{ op, key string }

func (e *memFailure) Error() string { return "memory store: forced " + e.op + " failure for " + e.key }

// Upload stores the object bytes under key.
func (m *MemoryStore) Upload(ctx context.Context, key string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailUploads != "" && strings.Contains(key, m.FailUploads) {
		return "", &memFailure{op: "upload", key: key}
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = b
	m.mu.Unlock()
	return m.URL(key), nil
}

// URL returns a stable fake URL for key.
func (m *MemoryStore) URL(key string) string { return "mem://" + key }

// ListPrefix returns all stored keys under prefix, sorted for determinism.
func (m *MemoryStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key; deleting a missing key is a no-op.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailDeletes != "" && strings.Contains(key, m.FailDeletes) {
		return &memFailure{op: "delete", key: key}
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored objects (test helper).
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Get returns the stored bytes for key (test helper).
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}

var _ BlobStore = (*MemoryStore)(nil)
var _ BlobStore = (*S3Store)(nil)

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"relaybot/internal/engine"
)

// MemoryStore is an in-memory implementation of the ObjectStore interface.
// It stores all objects in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data      []byte
	createdAt time.Time
}

var _ engine.ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory object store with the given
// bucket name.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryStore) Upload(_ context.Context, path string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("reading object: %w", err))
	}
	if int64(len(data)) != size {
		return engine.NewObjectStoreError(engine.ObjectUnknown,
			fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = memoryObject{data: data, createdAt: time.Now().UTC()}
	return nil
}

func (m *MemoryStore) Download(_ context.Context, path string, w io.Writer) error {
	m.mu.RLock()
	obj, ok := m.objects[path]
	m.mu.RUnlock()

	if !ok {
		return engine.NewObjectStoreError(engine.ObjectNotFound, fmt.Errorf("object %s", path))
	}
	if _, err := io.Copy(w, bytes.NewReader(obj.data)); err != nil {
		return engine.NewObjectStoreError(engine.ObjectUnknown, fmt.Errorf("writing object: %w", err))
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]engine.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.ObjectInfo
	for name, obj := range m.objects {
		if strings.HasPrefix(name, prefix) {
			out = append(out, engine.ObjectInfo{
				Name:      name,
				Size:      int64(len(obj.data)),
				CreatedAt: obj.createdAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *MemoryStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[path]
	m.mu.RUnlock()

	if !ok {
		return "", engine.NewObjectStoreError(engine.ObjectNotFound, fmt.Errorf("object %s", path))
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", m.bucket, path, int64(ttl.Seconds())), nil
}

func (m *MemoryStore) ValidateSetup(context.Context) error { return nil }

// Len returns the number of stored objects. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

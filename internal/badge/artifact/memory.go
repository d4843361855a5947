package artifact

import (
	"context"
	"sync"
)

// Object is a stored artifact.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryStore keeps artifacts in process memory. It backs local runs without
// a bucket and the service tests.
type MemoryStore struct {
	mu      sync.RWMutex
	host    string
	objects map[string]Object
	puts    int
}

// NewMemory constructs an empty in-memory store whose URLs use host.
func NewMemory(host string) *MemoryStore {
	if host == "" {
		host = "artifacts.local"
	}
	return &MemoryStore{host: host, objects: make(map[string]Object)}
}

// Put stores a copy of body, replacing any object under the same key.
func (m *MemoryStore) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	objectKey, err := ObjectKey(key, contentType)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	m.puts++
	return PublicURL(m.host, objectKey), nil
}

// Get returns the object stored under objectKey ("<key>.<ext>").
func (m *MemoryStore) Get(objectKey string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectKey]
	return obj, ok
}

// Puts returns how many uploads have been accepted.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

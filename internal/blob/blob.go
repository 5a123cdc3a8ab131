// Package blob stores uploaded example documents.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// Store keeps uploaded files under owner-scoped keys
type Store interface {
	Put(ctx context.Context, ownerID, name string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Location returns a URL-like reference to the object for records
	Location(key string) string
}

// ObjectKey builds the key of an upload: owner/name, with the name reduced
// to its base so uploads cannot escape the owner prefix.
func ObjectKey(ownerID, name string) (string, error) {
	ownerID = strings.Trim(strings.TrimSpace(ownerID), "/")
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if ownerID == "" {
		return "", fmt.Errorf("owner is required")
	}
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", fmt.Errorf("file name is required")
	}
	return ownerID + "/" + base, nil
}

// Memory is an in-process Store
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty Memory store
func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

// Put implements Store
func (m *Memory) Put(_ context.Context, ownerID, name string, content []byte, _ string) (string, error) {
	key, err := ObjectKey(ownerID, name)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), content...)
	return key, nil
}

// Get implements Store
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Location implements Store
func (m *Memory) Location(key string) string {
	return "memory://" + key
}

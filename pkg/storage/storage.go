// Package storage persists cluster state across simulator restarts.
//
// Clusters see a flat key/value Store. The fleet hands every cluster a
// Scoped view so keys of different devices and endpoints never collide.
package storage

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned by Load for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("storage: closed")

// Store is a byte-oriented key/value store.
//
// All methods must be safe for concurrent use.
type Store interface {
	// Load retrieves a value by key. Returns ErrNotFound if absent.
	Load(key string) ([]byte, error)

	// Store persists a value.
	Store(key string, value []byte) error

	// Close releases the underlying resources.
	Close() error
}

// Iterator is implemented by stores that can enumerate their contents.
type Iterator interface {
	// ForEach calls fn for every key with the given prefix, in key order.
	ForEach(prefix string, fn func(key string, value []byte) error) error
}

// MemoryStore is an in-memory Store. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Load implements Store.
func (m *MemoryStore) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Store implements Store.
func (m *MemoryStore) Store(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// ForEach implements Iterator.
func (m *MemoryStore) ForEach(prefix string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		values[k] = append([]byte(nil), m.data[k]...)
	}
	m.mu.RUnlock()

	slices.Sort(keys)
	for _, k := range keys {
		if err := fn(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// scoped prefixes every key of a parent store.
type scoped struct {
	parent Store
	prefix string
}

// Scoped returns a view of s whose keys are prefixed with prefix + "/".
// Closing the view does not close s.
func Scoped(s Store, prefix string) Store {
	if sc, ok := s.(*scoped); ok {
		return &scoped{parent: sc.parent, prefix: sc.prefix + prefix + "/"}
	}
	return &scoped{parent: s, prefix: prefix + "/"}
}

func (s *scoped) Load(key string) ([]byte, error) {
	return s.parent.Load(s.prefix + key)
}

func (s *scoped) Store(key string, value []byte) error {
	return s.parent.Store(s.prefix+key, value)
}

func (s *scoped) Close() error {
	return nil
}

// Verify implementations.
var (
	_ Store    = (*MemoryStore)(nil)
	_ Iterator = (*MemoryStore)(nil)
	_ Store    = (*scoped)(nil)
)

package storage

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// ErrNotIterable is returned by Snapshot for stores without ForEach.
var ErrNotIterable = errors.New("storage: store cannot be enumerated")

// Snapshot encodes every key of s as a CBOR map of key to value.
func Snapshot(s Store) ([]byte, error) {
	it, ok := s.(Iterator)
	if !ok {
		return nil, ErrNotIterable
	}
	entries := make(map[string][]byte)
	if err := it.ForEach("", func(key string, value []byte) error {
		entries[key] = value
		return nil
	}); err != nil {
		return nil, err
	}

	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(entries)
}

// Restore writes every entry of a Snapshot into s.
func Restore(s Store, snapshot []byte) error {
	var entries map[string][]byte
	if err := cbor.Unmarshal(snapshot, &entries); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	for _, key := range sortedKeys(entries) {
		if err := s.Store(key, entries[key]); err != nil {
			return fmt.Errorf("restore %s: %w", key, err)
		}
	}
	return nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

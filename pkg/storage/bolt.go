package storage

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketClusters = []byte("clusters")

// recordV1 prefixes every stored value, so empty values stay distinguishable
// from missing keys.
const recordV1 byte = 1

// BoltStore implements Store on a bbolt database file. All values live in
// a single "clusters" bucket.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates a bbolt database.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketClusters)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load implements Store.
func (s *BoltStore) Load(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketClusters)
		}
		data := b.Get([]byte(key))
		if len(data) == 0 {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		if data[0] != recordV1 {
			return fmt.Errorf("%s: unknown record version %d", key, data[0])
		}
		// Values are only valid for the life of the transaction.
		value = append([]byte{}, data[1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Store implements Store.
func (s *BoltStore) Store(key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketClusters)
		}
		record := make([]byte, 0, len(value)+1)
		record = append(record, recordV1)
		return b.Put([]byte(key), append(record, value...))
	})
}

// ForEach implements Iterator.
func (s *BoltStore) ForEach(prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		if b == nil {
			return nil
		}
		p := []byte(prefix)
		c := b.Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if len(v) == 0 || v[0] != recordV1 {
				continue
			}
			if err := fn(string(k), append([]byte{}, v[1:]...)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Verify BoltStore implements the interfaces.
var (
	_ Store    = (*BoltStore)(nil)
	_ Iterator = (*BoltStore)(nil)
)

package persist

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt is a file-backed KV backend over bbolt. One bucket holds one record
// group; the database is opened once and reused for the session's lifetime.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt opens (or creates) the database at path and ensures the record
// group's bucket exists. Failure to open is fatal for persistence: the
// returned error wraps ErrStorageUnavailable.
func OpenBolt(path, recordGroup string) (*Bolt, error) {
	if recordGroup == "" {
		return nil, fmt.Errorf("%w: record group is required", ErrStorageUnavailable)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrStorageUnavailable, path, err)
	}
	bucket := []byte(recordGroup)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: bucket %q: %v", ErrStorageUnavailable, recordGroup, err)
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

// Get implements KV.
func (b *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(b.bucket).Get([]byte(key))
		if raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("persist: read %q: %w", key, err)
	}
	return value, found, nil
}

// Put implements KV.
func (b *Bolt) Put(_ context.Context, key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), []byte(value))
	})
}

// Delete implements KV.
func (b *Bolt) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
}

// Close releases the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

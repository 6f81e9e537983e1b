package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketProbes = []byte("probes")

// boltRecord wraps a cached value with its expiry.
type boltRecord struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// BoltStore 单机模式下使用 bbolt 文件保存探测结果
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketProbes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketProbes).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, false, err
	}

	var rec boltRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, nil
	}
	if !rec.ExpiresAt.IsZero() && s.now().After(rec.ExpiresAt) {
		s.delete(key)
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func (s *BoltStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	rec := boltRecord{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = s.now().Add(ttl)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProbes).Put([]byte(key), data)
	})
}

// Len returns the number of stored entries, expired ones included.
func (s *BoltStore) Len() int {
	n := 0
	s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketProbes).Stats().KeyN
		return nil
	})
	return n
}

func (s *BoltStore) delete(key string) {
	s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProbes).Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

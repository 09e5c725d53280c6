package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
)

// Bucket names.
const (
	BucketLedger = "ledger"
	BucketMeta   = "meta"
)

var (
	keySnapshot = []byte("snapshot")
	keySavedAt  = []byte("saved_at")
)

// BoltStore keeps the ledger document in a bbolt database.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens the bbolt database at path and initializes buckets.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketLedger, BucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Load reads and restores the ledger.
func (s *BoltStore) Load(ctx context.Context, opts ...ledger.Option) (*ledger.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc Document
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BucketLedger)).Get(keySnapshot)
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}

	return doc.restore(opts...)
}

// Save writes the ledger and its save time in one bbolt transaction.
func (s *BoltStore) Save(ctx context.Context, l *ledger.Ledger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := NewDocument(l.Snapshot(), "bolt_snapshot")
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(BucketLedger)).Put(keySnapshot, data); err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketMeta)).Put(keySavedAt, []byte(doc.Meta.Timestamp.Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	slog.Debug("Ledger saved", "path", s.db.Path())
	return nil
}

// SavedAt returns the time of the last save.
func (s *BoltStore) SavedAt() (time.Time, error) {
	var savedAt time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketMeta)).Get(keySavedAt)
		if v == nil {
			return ErrNotFound
		}
		var err error
		savedAt, err = time.Parse(time.RFC3339, string(v))
		return err
	})
	return savedAt, err
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

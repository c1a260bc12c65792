package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketStorage = []byte("storage")

// Bolt stores keys in a single bbolt bucket.
type Bolt struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// BoltOption configures a Bolt store.
type BoltOption func(*Bolt)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) BoltOption {
	return func(b *Bolt) { b.logger = logger }
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string, opts ...BoltOption) (*Bolt, error) {
	b := &Bolt{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bolt store: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt store: opening database: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketStorage)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt store: creating bucket %s: %w", bucketStorage, err)
	}
	b.db = db
	b.logger.Debug("opened bolt store", "path", path)
	return b, nil
}

func (b *Bolt) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketStorage).Get([]byte(key))
		if v != nil {
			// v is only valid for the life of the transaction.
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt store: get %s: %w", key, err)
	}
	return out, out != nil, nil
}

func (b *Bolt) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStorage).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("bolt store: set %s: %w", key, err)
	}
	return nil
}

func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

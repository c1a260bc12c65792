package videomem

import (
	"context"
	"encoding/json"
	"fmt"
)

// StorageKey is the single key the whole cache is persisted under.
const StorageKey = "videoMemory"

// KV is the opaque key-value persistence the cache lives in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// StoreError reports a failed read or write of the cache store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("cache store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Repository loads and saves the full cache as one JSON document.
type Repository struct {
	kv KV
}

func NewRepository(kv KV) *Repository {
	return &Repository{kv: kv}
}

// Load returns the stored cache, or an empty one when nothing is stored yet.
func (r *Repository) Load(ctx context.Context) (Cache, error) {
	data, ok, err := r.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	if !ok || len(data) == 0 {
		return Cache{}, nil
	}
	var cache Cache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, &StoreError{Op: "decode", Err: err}
	}
	if cache == nil {
		cache = Cache{}
	}
	return cache, nil
}

// Save replaces the stored cache.
func (r *Repository) Save(ctx context.Context, cache Cache) error {
	if cache == nil {
		cache = Cache{}
	}
	data, err := json.Marshal(cache)
	if err != nil {
		return &StoreError{Op: "encode", Err: err}
	}
	if err := r.kv.Set(ctx, StorageKey, data); err != nil {
		return &StoreError{Op: "set", Err: err}
	}
	return nil
}

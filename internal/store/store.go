// Package store provides the key-value backends the video cache is
// persisted in.
package store

import (
	"context"
	"fmt"
)

// KV is an opaque key-value store holding raw JSON documents.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	BackendJSON = "json"
	BackendBolt = "bolt"
)

// Open opens the backend named by kind at path.
func Open(kind, path string) (KV, error) {
	switch kind {
	case "", BackendJSON:
		return NewJSONFile(path)
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", kind)
	}
}

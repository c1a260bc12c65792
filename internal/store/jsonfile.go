package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// JSONFile keeps all keys in one JSON object on disk, like an extension's
// local storage area. Writes go through a temp file and rename.
type JSONFile struct {
	path string
	mu   sync.RWMutex
}

// NewJSONFile creates the parent directory of path if needed.
func NewJSONFile(path string) (*JSONFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("json store: mkdir %s: %w", filepath.Dir(path), err)
	}
	return &JSONFile{path: path}, nil
}

func (s *JSONFile) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

func (s *JSONFile) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("json store: value for %q is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc[key] = json.RawMessage(value)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("json store: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("json store: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			slog.Debug("json store temp cleanup failed", "path", tmp, "error", rmErr)
		}
		return fmt.Errorf("json store: rename: %w", err)
	}
	return nil
}

func (s *JSONFile) Close() error { return nil }

func (s *JSONFile) readLocked() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json store: read: %w", err)
	}
	doc := map[string]json.RawMessage{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("json store: decode %s: %w", s.path, err)
	}
	return doc, nil
}

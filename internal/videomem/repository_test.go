package videomem

import (
	"context"
	"errors"
	"testing"
)

type memKV struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	m.sets++
	return nil
}

func TestRepositoryLoadAbsentIsEmpty(t *testing.T) {
	repo := NewRepository(&memKV{})
	cache, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cache == nil || len(cache) != 0 {
		t.Fatalf("Load() = %v; want empty non-nil cache", cache)
	}
}

func TestRepositorySaveLoad(t *testing.T) {
	kv := &memKV{}
	repo := NewRepository(kv)
	want := Cache{"https://youtube.com/watch?v=abc": {Duration: "04:30", Title: "X", LastUpdated: t0}}

	if err := repo.Save(context.Background(), want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok := kv.data[StorageKey]; !ok {
		t.Fatalf("Save() did not write key %q", StorageKey)
	}
	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got["https://youtube.com/watch?v=abc"] != want["https://youtube.com/watch?v=abc"] {
		t.Fatalf("Load() = %v; want %v", got, want)
	}
}

func TestRepositoryErrorsAreStoreErrors(t *testing.T) {
	boom := errors.New("disk gone")

	_, err := NewRepository(&memKV{getErr: boom}).Load(context.Background())
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "get" || !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v; want StoreError(get) wrapping cause", err)
	}

	err = NewRepository(&memKV{setErr: boom}).Save(context.Background(), Cache{})
	if !errors.As(err, &se) || se.Op != "set" {
		t.Fatalf("Save() error = %v; want StoreError(set)", err)
	}

	_, err = NewRepository(&memKV{data: map[string][]byte{StorageKey: []byte("{not json")}}).Load(context.Background())
	if !errors.As(err, &se) || se.Op != "decode" {
		t.Fatalf("Load() error = %v; want StoreError(decode)", err)
	}
}

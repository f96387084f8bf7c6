package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// envelope is the on-disk format of a namespace.
type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

// File stores a namespace as a single JSON document <dir>/<namespace>.json.
//
// Each operation is a read-modify-write of the whole file. Operations are
// serialized within the process, two processes sharing a workspace may still
// overwrite each other's writes.
type File[T Keyed] struct {
	path string
	mu   sync.Mutex
}

// NewFile returns the repository of a namespace in dir.
func NewFile[T Keyed](dir, namespace string) *File[T] {
	return &File[T]{path: filepath.Join(dir, namespace+".json")}
}

// Path returns the file backing the repository.
func (f *File[T]) Path() string { return f.path }

// read loads the items. A missing file is an empty list. Bare JSON arrays
// written before the payloads were versioned are accepted.
func (f *File[T]) read() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, persistence("read", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, persistencef("read", "cannot decode %q: %w", f.path, err)
		}
		return items, nil
	}
	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, persistencef("read", "cannot decode %q: %w", f.path, err)
	}
	if env.Version > Version {
		return nil, persistencef("read", "%q has version %d, this program only reads up to version %d", f.path, env.Version, Version)
	}
	return env.Items, nil
}

// write replaces the file atomically.
func (f *File[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(envelope[T]{Version: Version, Items: items}, "", "  ")
	if err != nil {
		return persistencef("write", "cannot encode %q: %w", f.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return persistence("write", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return persistence("write", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return persistence("write", err)
	}
	if err := tmp.Close(); err != nil {
		return persistence("write", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return persistence("write", err)
	}
	return nil
}

func (f *File[T]) List() ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File[T]) Get(key string) (T, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var zero T
	items, err := f.read()
	if err != nil {
		return zero, false, err
	}
	if i := find(items, key); i >= 0 {
		return items[i], true, nil
	}
	return zero, false, nil
}

func (f *File[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.read()
	if err != nil {
		return err
	}
	return f.write(append([]T{item}, items...))
}

func (f *File[T]) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, err := f.read()
	if err != nil {
		return err
	}
	i := find(items, key)
	if i < 0 {
		return nil
	}
	return f.write(append(items[:i:i], items[i+1:]...))
}

func (f *File[T]) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(nil)
}

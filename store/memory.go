package store

import "sync"

// Memory is a volatile repository.
type Memory[T Keyed] struct {
	mu    sync.Mutex
	items []T
}

// NewMemory returns an empty repository.
func NewMemory[T Keyed]() *Memory[T] { return &Memory[T]{} }

func (m *Memory[T]) List() ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.items...), nil
}

func (m *Memory[T]) Get(key string) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := find(m.items, key); i >= 0 {
		return m.items[i], true, nil
	}
	var zero T
	return zero, false, nil
}

func (m *Memory[T]) Append(item T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]T{item}, m.items...)
	return nil
}

func (m *Memory[T]) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := find(m.items, key); i >= 0 {
		m.items = append(m.items[:i:i], m.items[i+1:]...)
	}
	return nil
}

func (m *Memory[T]) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return nil
}

// Package sessionstore keeps live interview sessions in process memory and
// serializes work per session id.
package sessionstore

import (
	"errors"
	"sync"
)

var ErrNotFound = errors.New("session not found")

type entry[T any] struct {
	mu    sync.Mutex
	value T
}

// Memory is a registry of values keyed by session id. Do holds a per-id lock,
// so calls for one session run one at a time while other ids proceed.
type Memory[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{entries: make(map[string]*entry[T])}
}

// Put stores value under id. Replacing an existing value waits for a running
// Do on that id, but never holds the registry lock while waiting. It must not
// be called from inside Do for the same id.
func (m *Memory[T]) Put(id string, value T) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.entries[id] = &entry[T]{value: value}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	e.mu.Lock()
	e.value = value
	e.mu.Unlock()
}

func (m *Memory[T]) Get(id string) (T, bool) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, true
}

func (m *Memory[T]) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Do runs fn with the stored value while holding the id's lock.
func (m *Memory[T]) Do(id string, fn func(T) error) error {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.value)
}

package container

import "sync"

// memo caches a value derived from other container state until cleared.
type memo[T any] struct {
	mu    sync.Mutex
	valid bool
	value T
}

func (m *memo[T]) get(compute func() T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid {
		m.value = compute()
		m.valid = true
	}
	return m.value
}

func (m *memo[T]) clear() {
	m.mu.Lock()
	var zero T
	m.value, m.valid = zero, false
	m.mu.Unlock()
}

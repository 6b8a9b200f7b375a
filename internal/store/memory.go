package store

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store] with a fixed number
// of positions, one per route.
type MemoryStore struct {
	mu       sync.RWMutex
	outcomes []Outcome
	filled   []bool
}

// NewMemoryStore creates a [MemoryStore] with n positions.
func NewMemoryStore(n int) *MemoryStore {
	return &MemoryStore{
		outcomes: make([]Outcome, n),
		filled:   make([]bool, n),
	}
}

// Set records the outcome for position i.
// It panics if i is out of range, which indicates a caller bug.
func (m *MemoryStore) Set(i int, outcome Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i < 0 || i >= len(m.outcomes) {
		panic(fmt.Sprintf("store: position %d out of range [0, %d)", i, len(m.outcomes)))
	}
	m.outcomes[i] = outcome
	m.filled[i] = true
}

// Get returns the outcome at position i and whether it has been set.
func (m *MemoryStore) Get(i int) (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i < 0 || i >= len(m.outcomes) {
		return Outcome{}, false
	}
	return m.outcomes[i], m.filled[i]
}

// All returns a snapshot of every outcome in position order.
// The returned slice is a copy; modifications do not affect the store.
func (m *MemoryStore) All() []Outcome {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp := make([]Outcome, len(m.outcomes))
	copy(cp, m.outcomes)
	return cp
}

// Pending returns the positions that have not been set, in ascending order.
func (m *MemoryStore) Pending() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []int
	for i, ok := range m.filled {
		if !ok {
			pending = append(pending, i)
		}
	}
	return pending
}

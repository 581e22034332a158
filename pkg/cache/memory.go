package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in process memory. It backs tests and runs
// that should not touch a persistent cache.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	saves   int
}

// NewMemoryStore creates a store seeded with entries.
func NewMemoryStore(entries ...Entry) *MemoryStore {
	s := &MemoryStore{}
	s.entries = append(s.entries, entries...)
	return s
}

// Load returns a copy of the stored entries.
func (s *MemoryStore) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Save replaces the stored entries.
func (s *MemoryStore) Save(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

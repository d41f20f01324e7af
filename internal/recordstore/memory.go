package recordstore

import (
	"context"
	"sync"
)

// MemoryStore is a volatile in-process backend. It backs tests and any
// deployment that explicitly opts out of durability.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]string)}
}

// ReadAll returns a copy of the collection's lines.
func (s *MemoryStore) ReadAll(_ context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := s.collections[collection]
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

// WriteAll replaces the collection.
func (s *MemoryStore) WriteAll(_ context.Context, collection string, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]string, len(lines))
	copy(stored, lines)
	s.collections[collection] = stored
	return nil
}

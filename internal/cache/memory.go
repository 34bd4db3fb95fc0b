package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used when no Redis is configured
// and in tests. Scope-level TTLs are not applied; entry expiry still is.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[string]map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, scope, member string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scopes[scope][member]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, scope, member string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.scopes[scope]
	if !ok {
		members = make(map[string][]byte)
		s.scopes[scope] = members
	}
	members[member] = append([]byte(nil), value...)
	return nil
}

// Members implements Store.
func (s *MemoryStore) Members(_ context.Context, scope string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.scopes[scope]))
	for m := range s.scopes[scope] {
		out = append(out, m)
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, scope string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		delete(s.scopes[scope], m)
	}
	if len(s.scopes[scope]) == 0 {
		delete(s.scopes, scope)
	}
	return nil
}

// DeleteScope implements Store.
func (s *MemoryStore) DeleteScope(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
	return nil
}

// Len returns the number of entries in scope.
func (s *MemoryStore) Len(scope string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes[scope])
}

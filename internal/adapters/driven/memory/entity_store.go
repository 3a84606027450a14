// Package memory provides process-local stores for single-machine runs.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore implements driven.EntityStore with a guarded map.
type EntityStore struct {
	mu      sync.RWMutex
	entries map[string]domain.EntityKind
}

// NewEntityStore creates an empty EntityStore
func NewEntityStore() *EntityStore {
	return &EntityStore{entries: make(map[string]domain.EntityKind)}
}

// Get returns the kind stored for key
func (s *EntityStore) Get(_ context.Context, key string) (domain.EntityKind, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kind, ok := s.entries[key]
	return kind, ok, nil
}

// GetMany returns the known subset of keys
func (s *EntityStore) GetMany(_ context.Context, keys []string) (map[string]domain.EntityKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.EntityKind, len(keys))
	for _, key := range keys {
		if kind, ok := s.entries[key]; ok {
			out[key] = kind
		}
	}
	return out, nil
}

// PutIfAbsent stores kind under key unless the key exists
func (s *EntityStore) PutIfAbsent(_ context.Context, key string, kind domain.EntityKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = kind
	return true, nil
}

// Snapshot returns a copy of every entry
func (s *EntityStore) Snapshot(_ context.Context) (map[string]domain.EntityKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.EntityKind, len(s.entries))
	for key, kind := range s.entries {
		out[key] = kind
	}
	return out, nil
}

// Ping always succeeds
func (s *EntityStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of entries
func (s *EntityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure MockEntityStore implements EntityStore
var _ driven.EntityStore = (*MockEntityStore)(nil)

// MockEntityStore is an in-memory EntityStore with error injection
type MockEntityStore struct {
	mu      sync.Mutex
	entries map[string]domain.EntityKind

	// Err, when set, is returned by every call
	Err error
}

// NewMockEntityStore creates a new MockEntityStore
func NewMockEntityStore() *MockEntityStore {
	return &MockEntityStore{
		entries: make(map[string]domain.EntityKind),
	}
}

func (m *MockEntityStore) Get(ctx context.Context, key string) (domain.EntityKind, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", false, m.Err
	}
	kind, ok := m.entries[key]
	return kind, ok, nil
}

func (m *MockEntityStore) GetMany(ctx context.Context, keys []string) (map[string]domain.EntityKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]domain.EntityKind)
	for _, key := range keys {
		if kind, ok := m.entries[key]; ok {
			out[key] = kind
		}
	}
	return out, nil
}

func (m *MockEntityStore) PutIfAbsent(ctx context.Context, key string, kind domain.EntityKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, exists := m.entries[key]; exists {
		return false, nil
	}
	m.entries[key] = kind
	return true, nil
}

func (m *MockEntityStore) Snapshot(ctx context.Context) (map[string]domain.EntityKind, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]domain.EntityKind, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *MockEntityStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

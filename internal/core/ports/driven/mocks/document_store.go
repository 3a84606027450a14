package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure MockDocumentStore implements DocumentStore
var _ driven.DocumentStore = (*MockDocumentStore)(nil)

// MockDocumentStore keeps corpora and outputs in memory, keyed by path
type MockDocumentStore struct {
	mu      sync.RWMutex
	corpora map[string]*domain.Corpus
	outputs map[string]*domain.Output

	// WriteErr, when set, fails every write
	WriteErr error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		corpora: make(map[string]*domain.Corpus),
		outputs: make(map[string]*domain.Output),
	}
}

func (m *MockDocumentStore) ReadCorpus(ctx context.Context, path string) (*domain.Corpus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	corpus, ok := m.corpora[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return corpus, nil
}

func (m *MockDocumentStore) WriteCorpus(ctx context.Context, path string, corpus *domain.Corpus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.corpora[path] = corpus
	return nil
}

func (m *MockDocumentStore) ReadOutput(ctx context.Context, path string) (*domain.Output, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, ok := m.outputs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return out, nil
}

func (m *MockDocumentStore) WriteOutput(ctx context.Context, path string, out *domain.Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.outputs[path] = out
	return nil
}

// Output returns a written output by path (for test assertions)
func (m *MockDocumentStore) Output(path string) *domain.Output {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outputs[path]
}

// Corpus returns a written corpus by path (for test assertions)
func (m *MockDocumentStore) Corpus(path string) *domain.Corpus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.corpora[path]
}

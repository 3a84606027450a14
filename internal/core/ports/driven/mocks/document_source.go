package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure MockDocumentSource implements DocumentSource
var _ driven.DocumentSource = (*MockDocumentSource)(nil)

// MockDocumentSource serves preset corpora keyed by path
type MockDocumentSource struct {
	mu      sync.RWMutex
	corpora map[string]*domain.Corpus
}

// NewMockDocumentSource creates a new MockDocumentSource
func NewMockDocumentSource() *MockDocumentSource {
	return &MockDocumentSource{
		corpora: make(map[string]*domain.Corpus),
	}
}

func (m *MockDocumentSource) Read(ctx context.Context, path string) (*domain.Corpus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	corpus, ok := m.corpora[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return corpus, nil
}

// SetCorpus registers the corpus returned for path
func (m *MockDocumentSource) SetCorpus(path string, corpus *domain.Corpus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corpora[path] = corpus
}

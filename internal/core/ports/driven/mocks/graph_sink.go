package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure MockGraphSink implements GraphSink
var _ driven.GraphSink = (*MockGraphSink)(nil)

// MockGraphSink keeps loaded documents in memory, keyed by document ID.
// Reloading a document replaces it, mirroring MERGE semantics.
type MockGraphSink struct {
	mu        sync.Mutex
	documents map[string]*domain.Document
	loads     int

	// Custom behavior hooks (optional)
	LoadFn func(docs []*domain.Document) (*driven.LoadStats, error)
	PingFn func() error
}

// NewMockGraphSink creates a new MockGraphSink
func NewMockGraphSink() *MockGraphSink {
	return &MockGraphSink{
		documents: make(map[string]*domain.Document),
	}
}

func (m *MockGraphSink) Load(ctx context.Context, docs []*domain.Document) (*driven.LoadStats, error) {
	if m.LoadFn != nil {
		return m.LoadFn(docs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	stats := &driven.LoadStats{}
	for _, doc := range docs {
		if doc.ID() == "" {
			stats.Skipped++
			continue
		}
		m.documents[doc.ID()] = doc
		stats.Loaded++
	}
	return stats, nil
}

func (m *MockGraphSink) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockGraphSink) Close(ctx context.Context) error {
	return nil
}

// Document returns a loaded document by ID
func (m *MockGraphSink) Document(id string) *domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents[id]
}

// Count returns the number of distinct documents loaded
func (m *MockGraphSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents)
}

// LoadCount returns the number of Load calls
func (m *MockGraphSink) LoadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

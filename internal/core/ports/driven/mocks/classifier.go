package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure MockClassifier implements Classifier
var _ driven.Classifier = (*MockClassifier)(nil)

// MockClassifier answers from a fixed label table and records every batch.
// Terms without a label are omitted from the response, like a dropped item.
type MockClassifier struct {
	mu     sync.Mutex
	labels map[string]string
	calls  [][]string

	// ClassifyFn overrides the label table when set
	ClassifyFn func(terms []string) ([]domain.TermClassification, error)
}

// NewMockClassifier creates a new MockClassifier
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		labels: make(map[string]string),
	}
}

func (m *MockClassifier) Classify(ctx context.Context, terms []string) ([]domain.TermClassification, error) {
	m.mu.Lock()
	batch := make([]string, len(terms))
	copy(batch, terms)
	m.calls = append(m.calls, batch)
	fn := m.ClassifyFn
	m.mu.Unlock()

	if fn != nil {
		return fn(terms)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.TermClassification
	for _, term := range terms {
		if label, ok := m.labels[domain.NormalizeKey(term)]; ok {
			out = append(out, domain.TermClassification{Term: term, Classification: label})
		}
	}
	return out, nil
}

func (m *MockClassifier) Name() string {
	return "mock"
}

// Helper methods for testing

// SetLabel sets the raw label returned for a term
func (m *MockClassifier) SetLabel(term, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels[domain.NormalizeKey(term)] = label
}

// Calls returns a copy of every batch received, in order
func (m *MockClassifier) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Classify calls
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Requested returns every term sent for classification, across batches
func (m *MockClassifier) Requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, batch := range m.calls {
		out = append(out, batch...)
	}
	return out
}

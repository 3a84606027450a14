package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure MockAuthorityLookup implements AuthorityLookup
var _ driven.AuthorityLookup = (*MockAuthorityLookup)(nil)

// MockAuthorityLookup returns preset records keyed by name
type MockAuthorityLookup struct {
	mu      sync.Mutex
	records map[string]*domain.AuthorityRecord
	calls   []string
	hints   []string

	// LookupFn overrides the record table when set
	LookupFn func(name, yearHint string) (*domain.AuthorityRecord, error)
}

// NewMockAuthorityLookup creates a new MockAuthorityLookup
func NewMockAuthorityLookup() *MockAuthorityLookup {
	return &MockAuthorityLookup{
		records: make(map[string]*domain.AuthorityRecord),
	}
}

func (m *MockAuthorityLookup) Lookup(ctx context.Context, name, yearHint string) (*domain.AuthorityRecord, error) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.hints = append(m.hints, yearHint)
	fn := m.LookupFn
	record := m.records[name]
	m.mu.Unlock()

	if fn != nil {
		return fn(name, yearHint)
	}
	return record, nil
}

// SetRecord registers the record returned for name
func (m *MockAuthorityLookup) SetRecord(name string, record *domain.AuthorityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = record
}

// Calls returns the names looked up, in order
func (m *MockAuthorityLookup) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Hints returns the year hints passed, in call order
func (m *MockAuthorityLookup) Hints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hints...)
}

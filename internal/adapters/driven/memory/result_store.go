package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultStore = (*ResultStore)(nil)

// ResultStore keeps file results for the lifetime of the process
type ResultStore struct {
	mu   sync.Mutex
	runs map[string]map[string]domain.FileResult
}

// NewResultStore creates an empty ResultStore
func NewResultStore() *ResultStore {
	return &ResultStore{runs: make(map[string]map[string]domain.FileResult)}
}

// Save stores a copy of result, replacing an earlier result for the same path
func (s *ResultStore) Save(_ context.Context, runID string, result *domain.FileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		run = make(map[string]domain.FileResult)
		s.runs[runID] = run
	}
	run[result.Path] = *result
	return nil
}

// List returns every result of a run, ordered by path
func (s *ResultStore) List(_ context.Context, runID string) ([]*domain.FileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]*domain.FileResult, 0, len(s.runs[runID]))
	for _, result := range s.runs[runID] {
		r := result
		results = append(results, &r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

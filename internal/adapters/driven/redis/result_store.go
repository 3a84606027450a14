package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.ResultStore = (*ResultStore)(nil)

const (
	runResultsPrefix = "findingaid:run:"

	// DefaultResultTTL bounds how long a run's results are kept
	DefaultResultTTL = 7 * 24 * time.Hour
)

// ResultStore implements driven.ResultStore using one Redis hash per run.
// Runs use Redis TTL for automatic expiration.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultStore creates a new Redis-backed ResultStore
func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultStore{client: client, ttl: ttl}
}

// Save stores a file result and refreshes the run's TTL
func (s *ResultStore) Save(ctx context.Context, runID string, result *domain.FileResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := runResultsPrefix + runID + ":results"

	// Use pipeline for atomic operations
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, result.Path, data)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// List retrieves every result of a run, ordered by path
func (s *ResultStore) List(ctx context.Context, runID string) ([]*domain.FileResult, error) {
	values, err := s.client.HGetAll(ctx, runResultsPrefix+runID+":results").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results := make([]*domain.FileResult, 0, len(values))
	for path, data := range values {
		var result domain.FileResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result %s: %w", path, err)
		}
		results = append(results, &result)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

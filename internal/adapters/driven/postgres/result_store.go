package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultStore = (*ResultStore)(nil)

// ResultStore implements driven.ResultStore using PostgreSQL
type ResultStore struct {
	db *sql.DB
}

// NewResultStore creates a new ResultStore
func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Save stores a file result, replacing an earlier result for the same path
func (s *ResultStore) Save(ctx context.Context, runID string, result *domain.FileResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO file_results (run_id, path, result, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (run_id, path) DO UPDATE SET
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at
	`, runID, result.Path, data)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// List retrieves every result of a run, ordered by path
func (s *ResultStore) List(ctx context.Context, runID string) ([]*domain.FileResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM file_results WHERE run_id = $1 ORDER BY path`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.FileResult, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		var result domain.FileResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

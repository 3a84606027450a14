package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore implements driven.EntityStore on the known_entities table.
// It keeps the registry across runs when no Redis instance is configured.
type EntityStore struct {
	db        *sql.DB
	namespace string
}

// NewEntityStore creates a new EntityStore
func NewEntityStore(db *sql.DB, namespace string) *EntityStore {
	return &EntityStore{db: db, namespace: namespace}
}

// Get returns the kind stored for key
func (s *EntityStore) Get(ctx context.Context, key string) (domain.EntityKind, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT kind FROM known_entities WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get entity %s: %w", key, err)
	}

	kind, ok := domain.ParseEntityKind(value)
	return kind, ok, nil
}

// GetMany returns the known subset of keys
func (s *EntityStore) GetMany(ctx context.Context, keys []string) (map[string]domain.EntityKind, error) {
	out := make(map[string]domain.EntityKind, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, kind FROM known_entities WHERE namespace = $1 AND key = ANY($2)`,
		s.namespace, pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	defer rows.Close()

	if err := scanKinds(rows, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutIfAbsent stores kind under key unless the key exists
func (s *EntityStore) PutIfAbsent(ctx context.Context, key string, kind domain.EntityKind) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO known_entities (namespace, key, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO NOTHING
	`, s.namespace, key, string(kind))
	if err != nil {
		return false, fmt.Errorf("put entity %s: %w", key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows == 1, nil
}

// Snapshot returns every entry in the namespace
func (s *EntityStore) Snapshot(ctx context.Context) (map[string]domain.EntityKind, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, kind FROM known_entities WHERE namespace = $1`,
		s.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot entities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.EntityKind)
	if err := scanKinds(rows, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks database connectivity
func (s *EntityStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanKinds(rows *sql.Rows, out map[string]domain.EntityKind) error {
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan entity: %w", err)
		}
		if kind, ok := domain.ParseEntityKind(value); ok {
			out[key] = kind
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entities: %w", err)
	}
	return nil
}

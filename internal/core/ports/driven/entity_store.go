package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// EntityStore persists the known-entity mapping (normalized name -> kind).
// Implementations can use process memory, Redis or Postgres.
// Writes are first-writer-wins: an existing key is never overwritten.
type EntityStore interface {
	// Get returns the kind stored for key. ok is false when the key is unknown.
	Get(ctx context.Context, key string) (kind domain.EntityKind, ok bool, err error)

	// GetMany returns the known subset of keys.
	GetMany(ctx context.Context, keys []string) (map[string]domain.EntityKind, error)

	// PutIfAbsent stores kind under key unless the key exists.
	// Returns true if this call stored the value.
	PutIfAbsent(ctx context.Context, key string, kind domain.EntityKind) (stored bool, err error)

	// Snapshot returns a copy of every stored entry.
	Snapshot(ctx context.Context) (map[string]domain.EntityKind, error)

	// Ping checks if the store backend is healthy.
	Ping(ctx context.Context) error
}

package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// GraphSink upserts assembled documents into the graph database.
// Every write is an idempotent merge keyed by identifier.
type GraphSink interface {
	// Load writes each document in its own transaction.
	// Documents without an ID are skipped and counted. A document whose
	// transaction fails is counted as failed and the rest still load.
	Load(ctx context.Context, docs []*domain.Document) (*LoadStats, error)

	// Ping verifies connectivity and credentials.
	Ping(ctx context.Context) error

	// Close releases the driver.
	Close(ctx context.Context) error
}

// LoadStats reports the outcome of one Load call
type LoadStats struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// ResultStore keeps per-file results of a run so that any process can report
// on a run executed by distributed workers.
type ResultStore interface {
	// Save records the latest result for result.Path within runID.
	Save(ctx context.Context, runID string, result *domain.FileResult) error

	// List returns every result of runID, ordered by path.
	List(ctx context.Context, runID string) ([]*domain.FileResult, error)
}

package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// DocumentStore persists the ingestion and output JSON shapes between stages.
type DocumentStore interface {
	// ReadCorpus loads an ingestion-shape file
	ReadCorpus(ctx context.Context, path string) (*domain.Corpus, error)

	// WriteCorpus saves an ingestion-shape file
	WriteCorpus(ctx context.Context, path string, corpus *domain.Corpus) error

	// ReadOutput loads an output-shape file
	ReadOutput(ctx context.Context, path string) (*domain.Output, error)

	// WriteOutput saves an output-shape file
	WriteOutput(ctx context.Context, path string, out *domain.Output) error
}

package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// DocumentSource reads raw finding-aid records (XML) into the ingestion shape.
type DocumentSource interface {
	// Read parses one source file. Absent elements become nil or empty values.
	Read(ctx context.Context, path string) (*domain.Corpus, error)
}

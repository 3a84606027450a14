package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// AuthorityLookup resolves a personal name against an external authority file.
type AuthorityLookup interface {
	// Lookup returns the best match for name, or nil when the authority file
	// has no candidates. yearHint may be empty.
	Lookup(ctx context.Context, name, yearHint string) (*domain.AuthorityRecord, error)
}

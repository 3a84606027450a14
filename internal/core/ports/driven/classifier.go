package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// Classifier assigns an entity kind to free-text index terms.
//
// Implementations may return fewer pairs than requested terms, or pairs for
// terms that were never requested; the caller resolves both. Errors are
// classified with domain.NewTransientError / domain.NewFatalError, and an
// unparseable response wraps domain.ErrMalformedResponse.
type Classifier interface {
	// Classify sends one batch of terms, in order, to the external model.
	Classify(ctx context.Context, terms []string) ([]domain.TermClassification, error)

	// Name identifies the implementation in logs (chat, batch, replay).
	Name() string
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// AuthorityEnricher attaches authority-file identifiers to persons.
// Results, including misses, are cached for the lifetime of the enricher.
// Lookup failures leave the entity unenriched; only fatal errors are returned.
type AuthorityEnricher struct {
	lookup driven.AuthorityLookup
	retry  domain.RetryPolicy
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*domain.AuthorityRecord
}

// AuthorityEnricherConfig holds dependencies for AuthorityEnricher.
type AuthorityEnricherConfig struct {
	Lookup driven.AuthorityLookup
	Retry  domain.RetryPolicy
	Logger *slog.Logger
}

// NewAuthorityEnricher creates a new enricher.
func NewAuthorityEnricher(cfg AuthorityEnricherConfig) *AuthorityEnricher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorityEnricher{
		lookup: cfg.Lookup,
		retry:  cfg.Retry,
		logger: logger,
		cache:  make(map[string]*domain.AuthorityRecord),
	}
}

// Enrich sets viaf and authority on the authors, recipients and person index
// terms of doc. The year of dates.date-from is the disambiguation hint.
// It returns the number of entities enriched.
func (e *AuthorityEnricher) Enrich(ctx context.Context, doc *domain.Document) (int, error) {
	hint := domain.YearOf(doc.Dates.From)
	var matches int

	apply := func(name string, viaf, authority *string) error {
		record, err := e.resolve(ctx, name, hint)
		if err != nil {
			return err
		}
		if record == nil {
			return nil
		}
		*viaf = record.ClusterID
		*authority = record.LocalCode
		matches++
		return nil
	}

	for i := range doc.Authors {
		a := &doc.Authors[i]
		if err := apply(a.Name, &a.VIAF, &a.Authority); err != nil {
			return matches, err
		}
	}
	for i := range doc.Recipients {
		r := &doc.Recipients[i]
		if err := apply(r.Name, &r.VIAF, &r.Authority); err != nil {
			return matches, err
		}
	}

	var walkErr error
	for i := range doc.Indexing {
		doc.Indexing[i].Walk(func(t *domain.IndexTerm) {
			if walkErr != nil || t.Type != domain.KindPerson {
				return
			}
			walkErr = apply(t.Term, &t.VIAF, &t.Authority)
		})
		if walkErr != nil {
			return matches, walkErr
		}
	}

	return matches, nil
}

func (e *AuthorityEnricher) resolve(ctx context.Context, name, hint string) (*domain.AuthorityRecord, error) {
	cacheKey := domain.NormalizeKey(name) + "|" + hint

	e.mu.Lock()
	record, cached := e.cache[cacheKey]
	e.mu.Unlock()
	if cached {
		return record, nil
	}

	err := Retry(ctx, e.retry, e.logger, "authority lookup", func(ctx context.Context) error {
		var lookupErr error
		record, lookupErr = e.lookup.Lookup(ctx, name, hint)
		return lookupErr
	})
	if err != nil {
		if domain.IsFatal(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("authority lookup aborted: %w", err)
		}
		e.logger.Warn("authority lookup failed, leaving entity unenriched",
			"name", name,
			"year_hint", hint,
			"error", err,
		)
		return nil, nil
	}

	e.mu.Lock()
	e.cache[cacheKey] = record
	e.mu.Unlock()

	return record, nil
}

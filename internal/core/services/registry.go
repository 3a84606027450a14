package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// KnownEntityRegistry maps normalized names to entity kinds so that names
// already typed by structured fields, or classified once, never reach the
// classifier again. The backing store decides the sharing scope: a memory
// store per run or per worker, Redis or Postgres across processes.
type KnownEntityRegistry struct {
	store  driven.EntityStore
	logger *slog.Logger
}

// NewKnownEntityRegistry creates a registry over store.
func NewKnownEntityRegistry(store driven.EntityStore, logger *slog.Logger) *KnownEntityRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnownEntityRegistry{
		store:  store,
		logger: logger,
	}
}

// Seed registers the authors and recipients of doc as persons and its
// location as a place. It returns the number of new entries.
func (r *KnownEntityRegistry) Seed(ctx context.Context, doc *domain.RawDocument) (int, error) {
	var added int

	put := func(name string, kind domain.EntityKind) error {
		key := domain.NormalizeKey(name)
		if key == "" {
			return nil
		}
		stored, err := r.store.PutIfAbsent(ctx, key, kind)
		if err != nil {
			return fmt.Errorf("failed to seed %q: %w", key, err)
		}
		if stored {
			added++
		}
		return nil
	}

	for _, author := range doc.Authors {
		if err := put(author.Name, domain.KindPerson); err != nil {
			return added, err
		}
	}
	for _, recipient := range doc.Recipients {
		if err := put(recipient.Name, domain.KindPerson); err != nil {
			return added, err
		}
	}
	if doc.Location != nil {
		if err := put(doc.Location.Name, domain.KindPlace); err != nil {
			return added, err
		}
	}

	return added, nil
}

// Lookup returns the registered kind for text, if any.
func (r *KnownEntityRegistry) Lookup(ctx context.Context, text string) (domain.EntityKind, bool, error) {
	key := domain.NormalizeKey(text)
	if key == "" {
		return "", false, nil
	}
	return r.store.Get(ctx, key)
}

// LookupKeys returns the registered subset of already-normalized keys.
func (r *KnownEntityRegistry) LookupKeys(ctx context.Context, keys []string) (map[string]domain.EntityKind, error) {
	if len(keys) == 0 {
		return map[string]domain.EntityKind{}, nil
	}
	return r.store.GetMany(ctx, keys)
}

// Register memoizes a classification. Only named kinds are stored and the
// first registration of a key wins. It returns the kind now in effect.
func (r *KnownEntityRegistry) Register(ctx context.Context, text string, kind domain.EntityKind) (domain.EntityKind, error) {
	key := domain.NormalizeKey(text)
	if key == "" || !kind.IsNamed() {
		return kind, nil
	}

	stored, err := r.store.PutIfAbsent(ctx, key, kind)
	if err != nil {
		return kind, fmt.Errorf("failed to register %q: %w", key, err)
	}
	if stored {
		return kind, nil
	}

	existing, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return kind, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if !ok {
		return kind, nil
	}
	if existing != kind {
		r.logger.Debug("registry keeps first classification",
			"key", key,
			"kept", existing,
			"ignored", kind,
		)
	}
	return existing, nil
}

// Snapshot returns a copy of every registered entry.
func (r *KnownEntityRegistry) Snapshot(ctx context.Context) (map[string]domain.EntityKind, error) {
	return r.store.Snapshot(ctx)
}

// Ping checks the backing store.
func (r *KnownEntityRegistry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// ReconcileStats reports the outcome of merging per-worker registries.
type ReconcileStats struct {
	Merged    int `json:"merged"`
	Conflicts int `json:"conflicts"`
}

// Reconcile folds per-worker registries into target after a run.
// Sources are applied in order and keys in sorted order, so the result is
// deterministic; an entry already in target always wins.
func Reconcile(ctx context.Context, target *KnownEntityRegistry, sources ...*KnownEntityRegistry) (ReconcileStats, error) {
	var stats ReconcileStats

	for i, source := range sources {
		if source == nil || source == target {
			continue
		}

		entries, err := source.Snapshot(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to snapshot registry %d: %w", i, err)
		}

		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			kind := entries[key]
			stored, err := target.store.PutIfAbsent(ctx, key, kind)
			if err != nil {
				return stats, fmt.Errorf("failed to merge %q: %w", key, err)
			}
			if stored {
				stats.Merged++
				continue
			}

			existing, ok, err := target.store.Get(ctx, key)
			if err != nil {
				return stats, fmt.Errorf("failed to read %q: %w", key, err)
			}
			if ok && existing != kind {
				stats.Conflicts++
				target.logger.Debug("registry conflict",
					"key", key,
					"kept", existing,
					"ignored", kind,
					"source", i,
				)
			}
		}
	}

	if stats.Merged > 0 || stats.Conflicts > 0 {
		target.logger.Info("registries reconciled",
			"merged", stats.Merged,
			"conflicts", stats.Conflicts,
			"sources", len(sources),
		)
	}

	return stats, nil
}

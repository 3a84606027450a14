package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// DefaultBatchSize bounds the number of terms sent in one classification call.
const DefaultBatchSize = 50

// ClassificationMerger resolves free-text index terms to entity kinds.
//
// Terms the registry already knows never reach the classifier. The rest are
// sent in batches; named results are memoized in the registry so later
// batches and documents skip them. A batch that fails with anything but a
// fatal error degrades every one of its terms to KindTerm.
type ClassificationMerger struct {
	classifier driven.Classifier
	batchSize  int
	retry      domain.RetryPolicy
	logger     *slog.Logger
}

// ClassificationMergerConfig holds dependencies for ClassificationMerger.
type ClassificationMergerConfig struct {
	Classifier driven.Classifier
	BatchSize  int
	Retry      domain.RetryPolicy
	Logger     *slog.Logger
}

// NewClassificationMerger creates a new merger.
func NewClassificationMerger(cfg ClassificationMergerConfig) *ClassificationMerger {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ClassificationMerger{
		classifier: cfg.Classifier,
		batchSize:  batchSize,
		retry:      cfg.Retry,
		logger:     logger,
	}
}

// Merge returns a kind for every non-blank term, keyed by NormalizeKey.
//
// Blank terms are left out of the mapping. On a fatal classifier error Merge
// stops submitting batches and returns what it resolved so far together with
// the error.
func (m *ClassificationMerger) Merge(
	ctx context.Context,
	registry *KnownEntityRegistry,
	terms []string,
) (domain.Classifications, domain.ClassificationReport, error) {
	var report domain.ClassificationReport
	result := make(domain.Classifications)

	keys, raw := normalizedTerms(terms)
	if len(keys) == 0 {
		return result, report, nil
	}

	known, err := registry.LookupKeys(ctx, keys)
	if err != nil {
		return result, report, fmt.Errorf("failed to read registry: %w", err)
	}

	var unknown []string
	for _, key := range keys {
		if kind, ok := known[key]; ok {
			result[key] = kind
			report.Known++
			continue
		}
		unknown = append(unknown, key)
	}

	if len(unknown) > 0 && m.classifier == nil {
		for _, key := range unknown {
			result[key] = domain.KindTerm
		}
		report.Degraded += len(unknown)
		m.logger.Warn("no classifier configured, defaulting terms", "terms", len(unknown))
		return result, report, nil
	}

	for start := 0; start < len(unknown); start += m.batchSize {
		end := start + m.batchSize
		if end > len(unknown) {
			end = len(unknown)
		}

		if err := m.mergeBatch(ctx, registry, unknown[start:end], raw, result, &report); err != nil {
			return result, report, err
		}
	}

	m.logger.Debug("classification merged",
		"terms", len(keys),
		"known", report.Known,
		"classified", report.Classified,
		"degraded", report.Degraded,
		"batches", report.BatchesSent,
	)

	return result, report, nil
}

// mergeBatch classifies one chunk of unknown keys and folds the response
// into result. Only fatal errors are returned.
func (m *ClassificationMerger) mergeBatch(
	ctx context.Context,
	registry *KnownEntityRegistry,
	chunk []string,
	raw map[string]string,
	result domain.Classifications,
	report *domain.ClassificationReport,
) error {
	// Another worker may have registered some of these since the first lookup.
	known, err := registry.LookupKeys(ctx, chunk)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	pending := make(map[string]struct{}, len(chunk))
	batch := make([]string, 0, len(chunk))
	for _, key := range chunk {
		if kind, ok := known[key]; ok {
			result[key] = kind
			report.Known++
			continue
		}
		pending[key] = struct{}{}
		batch = append(batch, raw[key])
	}
	if len(batch) == 0 {
		return nil
	}

	var pairs []domain.TermClassification
	report.BatchesSent++
	err = Retry(ctx, m.retry, m.logger, "classify", func(ctx context.Context) error {
		var callErr error
		pairs, callErr = m.classifier.Classify(ctx, batch)
		return callErr
	})
	if err != nil {
		if domain.IsFatal(err) || ctx.Err() != nil {
			m.logger.Error("classification aborted", "classifier", m.classifier.Name(), "error", err)
			return fmt.Errorf("classification aborted: %w", err)
		}
		m.degrade(pending, result, report)
		m.logger.Warn("classification batch degraded to term",
			"classifier", m.classifier.Name(),
			"batch_size", len(batch),
			"error", err,
		)
		return nil
	}

	for _, pair := range pairs {
		key := domain.NormalizeKey(pair.Term)
		if _, ok := pending[key]; !ok {
			// Unrequested, or a repeat of an item already merged.
			continue
		}
		delete(pending, key)

		kind, ok := domain.ParseEntityKind(pair.Classification)
		if !ok {
			m.logger.Debug("unknown classification label",
				"term", pair.Term,
				"label", pair.Classification,
			)
			kind = domain.KindTerm
		}

		if kind.IsNamed() {
			effective, regErr := registry.Register(ctx, key, kind)
			if regErr != nil {
				m.logger.Warn("failed to register classification", "term", pair.Term, "error", regErr)
			} else {
				kind = effective
			}
		}

		result[key] = kind
		report.Classified++
	}

	if len(pending) > 0 {
		m.logger.Warn("classification response missing terms",
			"classifier", m.classifier.Name(),
			"missing", len(pending),
			"batch_size", len(batch),
		)
		for key := range pending {
			result[key] = domain.KindTerm
		}
		report.Degraded += len(pending)
	}

	return nil
}

func (m *ClassificationMerger) degrade(
	pending map[string]struct{},
	result domain.Classifications,
	report *domain.ClassificationReport,
) {
	for key := range pending {
		result[key] = domain.KindTerm
	}
	report.Degraded += len(pending)
	report.BatchesDegraded++
}

// normalizedTerms returns the distinct non-blank keys of texts, in first
// occurrence order, with the first raw text seen for each key.
func normalizedTerms(texts []string) (keys []string, raw map[string]string) {
	raw = make(map[string]string, len(texts))
	for _, text := range texts {
		key := domain.NormalizeKey(text)
		if key == "" {
			continue
		}
		if _, seen := raw[key]; seen {
			continue
		}
		raw[key] = strings.TrimSpace(text)
		keys = append(keys, key)
	}
	return keys, raw
}

// collectTerms lists every main, midsub and sub heading of docs in document order.
func collectTerms(docs []*domain.RawDocument) []string {
	var terms []string
	for _, doc := range docs {
		for _, t := range domain.DedupeTriples(doc.Indexing) {
			terms = append(terms, t.Main)
			if t.Midsub != "" {
				terms = append(terms, t.Midsub)
			}
			if t.Sub != "" {
				terms = append(terms, t.Sub)
			}
		}
	}
	return terms
}

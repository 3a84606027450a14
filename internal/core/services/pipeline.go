package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// PipelineOrchestrator runs the finding-aid pipeline for one file at a time:
//  1. Convert XML (or read ingestion JSON), deduplicating index terms
//  2. Seed the known-entity registry from structured fields
//  3. Classify unknown index terms
//  4. Assemble output documents with URIs
//  5. Enrich persons from the authority file (optional)
//  6. Save the output JSON
//  7. Load into the graph database (optional)
//
// A failing stage stops only its file and is reported in the FileResult.
// Fatal errors are also returned so the caller can stop the whole run.
type PipelineOrchestrator struct {
	source   driven.DocumentSource
	store    driven.DocumentStore
	merger   *ClassificationMerger
	enricher *AuthorityEnricher
	sink     driven.GraphSink
	registry *KnownEntityRegistry
	dataDir  string
	parallel int
	logger   *slog.Logger
}

// PipelineOrchestratorConfig holds dependencies for PipelineOrchestrator.
type PipelineOrchestratorConfig struct {
	Source   driven.DocumentSource
	Store    driven.DocumentStore
	Merger   *ClassificationMerger
	Enricher *AuthorityEnricher  // nil disables authority enrichment
	Sink     driven.GraphSink    // nil disables graph loading
	Registry *KnownEntityRegistry
	DataDir  string
	Parallel int // files converted concurrently by Prepare
	Logger   *slog.Logger
}

// NewPipelineOrchestrator creates a new pipeline orchestrator.
func NewPipelineOrchestrator(cfg PipelineOrchestratorConfig) *PipelineOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = 3
	}

	return &PipelineOrchestrator{
		source:   cfg.Source,
		store:    cfg.Store,
		merger:   cfg.Merger,
		enricher: cfg.Enricher,
		sink:     cfg.Sink,
		registry: cfg.Registry,
		dataDir:  dataDir,
		parallel: parallel,
		logger:   logger,
	}
}

// Registry returns the run-scoped registry.
func (o *PipelineOrchestrator) Registry() *KnownEntityRegistry {
	return o.registry
}

// ProcessOptions adjusts a single Process call.
type ProcessOptions struct {
	// OutputPath overrides the default <data dir>/<name>_classified.json.
	OutputPath string

	// SkipLoad stops after the output file is written.
	SkipLoad bool

	// Registry replaces the run-scoped registry, e.g. one per worker.
	Registry *KnownEntityRegistry
}

// ProcessFile runs every stage for path with default options.
func (o *PipelineOrchestrator) ProcessFile(ctx context.Context, path string) (*domain.FileResult, error) {
	return o.Process(ctx, path, ProcessOptions{})
}

// Process runs every stage for one XML or ingestion JSON file.
func (o *PipelineOrchestrator) Process(ctx context.Context, path string, opts ProcessOptions) (*domain.FileResult, error) {
	startTime := time.Now()
	result := &domain.FileResult{Path: path}
	logger := o.logger.With("file", path)

	registry := opts.Registry
	if registry == nil {
		registry = o.registry
	}

	logger.Info("processing file")

	// Step 1: Convert
	corpus, err := o.Convert(ctx, path)
	if err != nil {
		return o.failFile(result, domain.StageConvert, startTime, err)
	}
	result.Stats.Documents = len(corpus.Documents)

	// Step 2: Seed
	if err := o.seed(ctx, registry, corpus); err != nil {
		return o.failFile(result, domain.StageSeed, startTime, err)
	}

	// Step 3: Classify
	terms := collectTerms(corpus.Documents)
	result.Stats.IndexTerms = len(terms)
	classifications, report, err := o.merger.Merge(ctx, registry, terms)
	result.Stats.TermsKnown = report.Known
	result.Stats.TermsClassified = report.Classified
	result.Stats.TermsDegraded = report.Degraded
	result.Stats.BatchesSent = report.BatchesSent
	result.Stats.BatchesDegraded = report.BatchesDegraded
	if err != nil {
		return o.failFile(result, domain.StageClassify, startTime, err)
	}

	// Step 4: Assemble
	out := &domain.Output{Documents: make([]*domain.Document, 0, len(corpus.Documents))}
	for _, raw := range corpus.Documents {
		doc := Assemble(raw, classifications)
		if doc.ID() == "" {
			logger.Warn("document has no id", "error", domain.ErrMissingDocumentID)
		}
		out.Documents = append(out.Documents, doc)
	}

	// Step 5: Enrich
	if o.enricher != nil {
		for _, doc := range out.Documents {
			matches, err := o.enricher.Enrich(ctx, doc)
			result.Stats.AuthorityMatches += matches
			if err != nil {
				return o.failFile(result, domain.StageEnrich, startTime, err)
			}
		}
	}

	// Step 6: Save
	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = o.OutputPath(path)
	}
	if err := o.store.WriteOutput(ctx, outputPath, out); err != nil {
		return o.failFile(result, domain.StageSave, startTime, err)
	}
	result.OutputPath = outputPath

	// Step 7: Load
	if o.sink != nil && !opts.SkipLoad {
		stats, err := o.sink.Load(ctx, out.Documents)
		if stats != nil {
			result.Stats.DocumentsLoaded = stats.Loaded
			result.Stats.DocumentsSkipped = stats.Skipped
		}
		if err != nil {
			return o.failFile(result, domain.StageLoad, startTime, err)
		}
	}

	result.Success = true
	result.Duration = time.Since(startTime).Seconds()

	logger.Info("file completed",
		"duration_seconds", result.Duration,
		"documents", result.Stats.Documents,
		"terms_known", result.Stats.TermsKnown,
		"terms_classified", result.Stats.TermsClassified,
		"terms_degraded", result.Stats.TermsDegraded,
		"authority_matches", result.Stats.AuthorityMatches,
		"documents_loaded", result.Stats.DocumentsLoaded,
	)

	return result, nil
}

// Convert reads path as XML, or as ingestion JSON when it ends in .json,
// and deduplicates each document's index terms.
func (o *PipelineOrchestrator) Convert(ctx context.Context, path string) (*domain.Corpus, error) {
	var (
		corpus *domain.Corpus
		err    error
	)
	if isJSON(path) {
		corpus, err = o.store.ReadCorpus(ctx, path)
	} else {
		corpus, err = o.source.Read(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	for _, doc := range corpus.Documents {
		doc.Indexing = domain.DedupeTriples(doc.Indexing)
	}
	return corpus, nil
}

// ConvertFile converts one XML file and writes the ingestion JSON to dest.
func (o *PipelineOrchestrator) ConvertFile(ctx context.Context, path, dest string) (*domain.Corpus, error) {
	corpus, err := o.Convert(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := o.store.WriteCorpus(ctx, dest, corpus); err != nil {
		return nil, err
	}
	return corpus, nil
}

// Prepare converts every file and seeds the run registry before any
// classification starts, so that names known from any file short-circuit
// classification in every other file. XML inputs are saved as ingestion
// JSON in the data directory; the result's OutputPath names that file.
func (o *PipelineOrchestrator) Prepare(ctx context.Context, paths []string) ([]*domain.FileResult, error) {
	results := make([]*domain.FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)

	for i, path := range paths {
		g.Go(func() error {
			startTime := time.Now()
			result := &domain.FileResult{Path: path}
			results[i] = result

			ingestPath := path
			var corpus *domain.Corpus
			var err error
			if isJSON(path) {
				corpus, err = o.Convert(gctx, path)
			} else {
				ingestPath = o.IngestPath(path)
				corpus, err = o.ConvertFile(gctx, path, ingestPath)
			}
			if err != nil {
				_, fatal := o.failFile(result, domain.StageConvert, startTime, err)
				return fatal
			}
			result.Stats.Documents = len(corpus.Documents)

			if err := o.seed(gctx, o.registry, corpus); err != nil {
				_, fatal := o.failFile(result, domain.StageSeed, startTime, err)
				return fatal
			}

			result.OutputPath = ingestPath
			result.Success = true
			result.Duration = time.Since(startTime).Seconds()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// AssignURIsFile recomputes URIs in an output file in place.
func (o *PipelineOrchestrator) AssignURIsFile(ctx context.Context, path string) (int, error) {
	out, err := o.store.ReadOutput(ctx, path)
	if err != nil {
		return 0, err
	}
	for _, doc := range out.Documents {
		AssignURIs(doc)
	}
	if err := o.store.WriteOutput(ctx, path, out); err != nil {
		return 0, err
	}
	return len(out.Documents), nil
}

// LoadFile loads an output file into the graph database.
func (o *PipelineOrchestrator) LoadFile(ctx context.Context, path string) (*driven.LoadStats, error) {
	if o.sink == nil {
		return nil, errors.New("graph sink is not configured")
	}
	out, err := o.store.ReadOutput(ctx, path)
	if err != nil {
		return nil, err
	}
	return o.sink.Load(ctx, out.Documents)
}

// IngestPath is where the ingestion JSON for an XML file is written.
func (o *PipelineOrchestrator) IngestPath(path string) string {
	return filepath.Join(o.dataDir, baseName(path)+".json")
}

// OutputPath is where the output JSON for an input file is written.
func (o *PipelineOrchestrator) OutputPath(path string) string {
	return filepath.Join(o.dataDir, baseName(path)+"_classified.json")
}

func (o *PipelineOrchestrator) seed(ctx context.Context, registry *KnownEntityRegistry, corpus *domain.Corpus) error {
	for _, doc := range corpus.Documents {
		if _, err := registry.Seed(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// failFile records a stage failure. Only fatal errors are returned.
func (o *PipelineOrchestrator) failFile(
	result *domain.FileResult,
	stage domain.Stage,
	startTime time.Time,
	err error,
) (*domain.FileResult, error) {
	result.Success = false
	result.Stage = stage
	result.Error = err.Error()
	result.Duration = time.Since(startTime).Seconds()

	o.logger.Error("file failed",
		"file", result.Path,
		"stage", stage,
		"duration_seconds", result.Duration,
		"error", err,
	)

	if domain.IsFatal(err) {
		return result, err
	}
	return result, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListInputs returns the XML files to process: the named files under dir, or
// every .xml file in dir when no names are given. Names keep their order.
func ListInputs(dir string, names []string) ([]string, error) {
	if len(names) > 0 {
		paths := make([]string, 0, len(names))
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
		return paths, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// RunSummary aggregates the results of a run.
type RunSummary struct {
	mu      sync.Mutex
	Results []*domain.FileResult
}

// Add records a file result. Safe for concurrent use.
func (s *RunSummary) Add(result *domain.FileResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Results = append(s.Results, result)
}

// Failed returns the results that did not succeed.
func (s *RunSummary) Failed() []*domain.FileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []*domain.FileResult
	for _, r := range s.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// AddMissing records a failed result at StageQueue for every path that has
// no result yet, and returns the results it added.
func (s *RunSummary) AddMissing(paths []string, reason string) []*domain.FileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.Results))
	for _, r := range s.Results {
		seen[r.Path] = true
	}
	var added []*domain.FileResult
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		r := &domain.FileResult{Path: path, Stage: domain.StageQueue, Error: reason}
		s.Results = append(s.Results, r)
		added = append(added, r)
	}
	return added
}

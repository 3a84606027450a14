package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven/mocks"
)

type pipelineFixture struct {
	orchestrator *PipelineOrchestrator
	source       *mocks.MockDocumentSource
	store        *mocks.MockDocumentStore
	classifier   *mocks.MockClassifier
	lookup       *mocks.MockAuthorityLookup
	sink         *mocks.MockGraphSink
	registry     *KnownEntityRegistry
}

// Test helper to create PipelineOrchestrator with mocks
func createTestPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		source:     mocks.NewMockDocumentSource(),
		store:      mocks.NewMockDocumentStore(),
		classifier: mocks.NewMockClassifier(),
		lookup:     mocks.NewMockAuthorityLookup(),
		sink:       mocks.NewMockGraphSink(),
	}
	f.registry, _ = newTestRegistry()

	f.orchestrator = NewPipelineOrchestrator(PipelineOrchestratorConfig{
		Source:   f.source,
		Store:    f.store,
		Merger:   newTestMerger(f.classifier, 10),
		Enricher: newTestEnricher(f.lookup),
		Sink:     f.sink,
		Registry: f.registry,
		DataDir:  "out",
	})
	return f
}

func TestPipeline_ProcessFile(t *testing.T) {
	f := createTestPipeline(t)
	ctx := context.Background()

	raw := jeffersonLetter()
	raw.Indexing = append(raw.Indexing,
		domain.TermTriple{Main: "Aberdeen, Scotland"},
		domain.TermTriple{Main: "Agriculture "},
	)
	f.source.SetCorpus("xml/letters.xml", &domain.Corpus{Documents: []*domain.RawDocument{raw}})
	f.classifier.SetLabel("Aberdeen, Scotland", "PLACE")
	f.lookup.SetRecord("Thomas Jefferson", &domain.AuthorityRecord{ClusterID: "41866271", LocalCode: "n79089957"})

	result, err := f.orchestrator.ProcessFile(ctx, "xml/letters.xml")
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, filepath.Join("out", "letters_classified.json"), result.OutputPath)
	assert.Equal(t, 1, result.Stats.Documents)
	assert.Equal(t, 1, result.Stats.TermsClassified)
	assert.Equal(t, 1, result.Stats.TermsDegraded)
	assert.Equal(t, 1, result.Stats.AuthorityMatches)
	assert.Equal(t, 1, result.Stats.DocumentsLoaded)

	// Agriculture was sent once despite the duplicate triple.
	assert.Equal(t, []string{"Agriculture", "Aberdeen, Scotland"}, f.classifier.Requested())

	out := f.store.Output(result.OutputPath)
	require.NotNil(t, out)
	require.Len(t, out.Documents, 1)
	doc := out.Documents[0]
	assert.Equal(t, "Thomas Jefferson", doc.Authors[0].Name)
	assert.Equal(t, "41866271", doc.Authors[0].VIAF)
	require.Len(t, doc.Indexing, 2)
	assert.Equal(t, domain.KindTerm, doc.Indexing[0].Type)
	assert.Equal(t, domain.KindPlace, doc.Indexing[1].Type)
	assert.Equal(t, "r80684553", doc.Indexing[1].URI)

	assert.NotNil(t, f.sink.Document("TSJN-01-01-02-0001"))
}

func TestPipeline_ProcessIngestionJSON(t *testing.T) {
	f := createTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, f.store.WriteCorpus(ctx, "out/letters.json", &domain.Corpus{
		Documents: []*domain.RawDocument{jeffersonLetter()},
	}))

	result, err := f.orchestrator.Process(ctx, "out/letters.json", ProcessOptions{
		OutputPath: "custom.json",
		SkipLoad:   true,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.NotNil(t, f.store.Output("custom.json"))
	assert.Equal(t, 0, f.sink.LoadCount())
}

func TestPipeline_KnownEntityAcrossFiles(t *testing.T) {
	f := createTestPipeline(t)
	ctx := context.Background()

	f.source.SetCorpus("a.xml", &domain.Corpus{Documents: []*domain.RawDocument{{
		DocumentID: strPtr("A"),
		Authors:    []domain.NameRef{{Name: "Madison, James"}},
	}}})
	f.source.SetCorpus("b.xml", &domain.Corpus{Documents: []*domain.RawDocument{{
		DocumentID: strPtr("B"),
		Indexing:   []domain.TermTriple{{Main: "Madison, James"}},
	}}})

	results, err := f.orchestrator.Prepare(ctx, []string{"a.xml", "b.xml"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
	}
	assert.Equal(t, filepath.Join("out", "a.json"), results[0].OutputPath)
	assert.NotNil(t, f.store.Corpus(filepath.Join("out", "b.json")))

	result, err := f.orchestrator.ProcessFile(ctx, results[1].OutputPath)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, 0, f.classifier.CallCount(), "author of another file short-circuits classification")
	doc := f.store.Output(result.OutputPath).Documents[0]
	assert.Equal(t, "James Madison", doc.Indexing[0].Term)
	assert.Equal(t, domain.KindPerson, doc.Indexing[0].Type)
	assert.Equal(t, "r19229132", doc.Indexing[0].URI)
}

func TestPipeline_ConvertFailureIsolated(t *testing.T) {
	f := createTestPipeline(t)

	result, err := f.orchestrator.ProcessFile(context.Background(), "missing.xml")
	require.NoError(t, err, "non-fatal stage failures are reported in the result")
	assert.False(t, result.Success)
	assert.Equal(t, domain.StageConvert, result.Stage)
	assert.NotEmpty(t, result.Error)
}

func TestPipeline_FatalClassificationAborts(t *testing.T) {
	f := createTestPipeline(t)
	f.source.SetCorpus("a.xml", &domain.Corpus{Documents: []*domain.RawDocument{{
		Indexing: []domain.TermTriple{{Main: "Agriculture"}},
	}}})
	f.classifier.ClassifyFn = func(terms []string) ([]domain.TermClassification, error) {
		return nil, domain.NewFatalError(domain.ErrUnauthorized)
	}

	result, err := f.orchestrator.ProcessFile(context.Background(), "a.xml")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
	assert.Equal(t, domain.StageClassify, result.Stage)
	assert.Nil(t, f.store.Output(f.orchestrator.OutputPath("a.xml")))
}

func TestPipeline_SaveFailure(t *testing.T) {
	f := createTestPipeline(t)
	f.source.SetCorpus("a.xml", &domain.Corpus{Documents: []*domain.RawDocument{jeffersonLetter()}})
	f.store.WriteErr = errors.New("disk full")

	result, err := f.orchestrator.ProcessFile(context.Background(), "a.xml")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, domain.StageSave, result.Stage)
	assert.Equal(t, 0, f.sink.LoadCount())
}

func TestPipeline_LoadFailure(t *testing.T) {
	f := createTestPipeline(t)
	f.source.SetCorpus("a.xml", &domain.Corpus{Documents: []*domain.RawDocument{jeffersonLetter()}})
	f.sink.LoadFn = func(docs []*domain.Document) (*driven.LoadStats, error) {
		return nil, domain.NewFatalError(domain.ErrUnauthorized)
	}

	result, err := f.orchestrator.ProcessFile(context.Background(), "a.xml")
	require.Error(t, err)
	assert.Equal(t, domain.StageLoad, result.Stage)
}

func TestPipeline_WorkerRegistryOption(t *testing.T) {
	f := createTestPipeline(t)
	ctx := context.Background()
	f.source.SetCorpus("a.xml", &domain.Corpus{Documents: []*domain.RawDocument{jeffersonLetter()}})

	workerRegistry, _ := newTestRegistry()
	result, err := f.orchestrator.Process(ctx, "a.xml", ProcessOptions{Registry: workerRegistry})
	require.NoError(t, err)
	require.True(t, result.Success)

	_, ok, _ := workerRegistry.Lookup(ctx, "Jefferson, Thomas")
	assert.True(t, ok)
	_, ok, _ = f.registry.Lookup(ctx, "Jefferson, Thomas")
	assert.False(t, ok, "run registry untouched until reconciled")
}

func TestPipeline_AssignURIsAndLoadFile(t *testing.T) {
	f := createTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, f.store.WriteOutput(ctx, "out.json", &domain.Output{Documents: []*domain.Document{{
		DocumentID: strPtr("X"),
		Authors:    []domain.Entity{{Name: "Thomas Jefferson", Type: domain.KindPerson}},
	}}}))

	n, err := f.orchestrator.AssignURIsFile(ctx, "out.json")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "r87835264", f.store.Output("out.json").Documents[0].Authors[0].URI)

	stats, err := f.orchestrator.LoadFile(ctx, "out.json")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)
}

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xml", "a.XML", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("<documents/>"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xml"), 0o755))

	paths, err := ListInputs(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.XML"), filepath.Join(dir, "b.xml")}, paths)

	paths, err = ListInputs(dir, []string{"b.xml", "a.XML"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.xml"), filepath.Join(dir, "a.XML")}, paths)

	_, err = ListInputs(filepath.Join(dir, "missing"), nil)
	assert.Error(t, err)
}

func TestRunSummary_AddMissing(t *testing.T) {
	summary := &RunSummary{}
	summary.Add(&domain.FileResult{Path: "a.json", Success: true})
	summary.Add(&domain.FileResult{Path: "b.json", Stage: domain.StageClassify, Error: "boom"})

	added := summary.AddMissing([]string{"a.json", "b.json", "c.json", "d.json"}, "not processed: context canceled")

	require.Len(t, added, 2)
	assert.Equal(t, "c.json", added[0].Path)
	assert.Equal(t, "d.json", added[1].Path)
	for _, r := range added {
		assert.False(t, r.Success)
		assert.Equal(t, domain.StageQueue, r.Stage)
		assert.Equal(t, "not processed: context canceled", r.Error)
	}
	assert.Len(t, summary.Results, 4)
	assert.Len(t, summary.Failed(), 3)

	assert.Empty(t, summary.AddMissing([]string{"c.json"}, "again"))
}

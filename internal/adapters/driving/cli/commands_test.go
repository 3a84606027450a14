package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/findingaid/internal/adapters/driven/ai"
	"github.com/custodia-labs/findingaid/internal/core/domain"
)

const lettersXML = `<?xml version="1.0" encoding="UTF-8"?>
<documents>
  <document>
    <documentID>TSJN-01-01-02-0001</documentID>
    <documentTitle>To James Madison</documentTitle>
    <authors><author>Jefferson, Thomas</author></authors>
    <recipients><recipient>Madison, James</recipient></recipients>
    <dates><date-from>1787-05-10</date-from></dates>
    <location><placeName>Monticello</placeName></location>
    <indexing>
      <indexTerm><main>Aberdeen, Scotland</main></indexTerm>
      <indexTerm><main>Agriculture</main></indexTerm>
      <indexTerm><main>Madison, James</main></indexTerm>
    </indexing>
  </document>
  <document>
    <documentID>TSJN-01-01-02-0002</documentID>
    <authors><author>Madison, James</author></authors>
  </document>
</documents>`

const replayTasks = `{"custom_id":"task-0","method":"POST","url":"/v1/chat/completions","body":{"model":"m","temperature":0.1,"messages":[{"role":"system","content":"s"},{"role":"user","content":"Aberdeen, Scotland"}]}}
`

const replayResults = `{"custom_id":"task-0","response":{"status_code":200,"body":{"choices":[{"message":{"content":"{\"classification\": \"PLACE\"}"}}]}}}
`

// setupCommand runs in an empty directory with a local, replay-mode
// configuration and returns the buffer that collects command output.
func setupCommand(t *testing.T, archiveNames ...string) *bytes.Buffer {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	replayDir := filepath.Join(dir, "replay")
	require.NoError(t, os.Mkdir(replayDir, 0o755))
	for _, name := range archiveNames {
		require.NoError(t, os.WriteFile(filepath.Join(replayDir, ai.TasksFileName(name)), []byte(replayTasks), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(replayDir, ai.ResultsFileName(name)), []byte(replayResults), 0o644))
	}

	t.Setenv("CLASSIFIER_MODE", "replay")
	t.Setenv("REPLAY_DIR", replayDir)
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTHORITY_ENABLED", "false")
	t.Setenv("REGISTRY_SCOPE", "run")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("DATA_DIR", "out")

	envFile, verbose, dataDir = "", false, ""
	classifyNoLoad, classifyArchiveName = false, ""
	runNoLoad, runConcurrency, runArchiveName = false, 0, ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return buf
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	// Subcommands keep the context of their first execution.
	for _, c := range rootCmd.Commands() {
		c.SetContext(t.Context())
	}
	return Execute(t.Context())
}

func readOutput(t *testing.T, path string) *domain.Output {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out domain.Output
	require.NoError(t, json.Unmarshal(data, &out))
	return &out
}

func findTerm(doc *domain.Document, term string) *domain.IndexTerm {
	for i := range doc.Indexing {
		if doc.Indexing[i].Term == term {
			return &doc.Indexing[i]
		}
	}
	return nil
}

func TestConvertCmd(t *testing.T) {
	buf := setupCommand(t)
	require.NoError(t, os.WriteFile("letters.xml", []byte(lettersXML), 0o644))

	require.NoError(t, execute(t, "convert", "letters.xml"))

	assert.Contains(t, buf.String(), "Converted 2 documents to "+filepath.Join("out", "letters.json"))
	data, err := os.ReadFile(filepath.Join("out", "letters.json"))
	require.NoError(t, err)

	var corpus domain.Corpus
	require.NoError(t, json.Unmarshal(data, &corpus))
	require.Len(t, corpus.Documents, 2)
	assert.Equal(t, "TSJN-01-01-02-0001", corpus.Documents[0].ID())
}

func TestConvertCmd_ExplicitDestination(t *testing.T) {
	setupCommand(t)
	require.NoError(t, os.WriteFile("letters.xml", []byte(lettersXML), 0o644))

	require.NoError(t, execute(t, "convert", "letters.xml", "custom.json"))

	_, err := os.Stat("custom.json")
	assert.NoError(t, err)
}

func TestConvertCmd_MissingFile(t *testing.T) {
	setupCommand(t)

	assert.Error(t, execute(t, "convert", "missing.xml"))
}

func TestClassifyCmd_Replay(t *testing.T) {
	buf := setupCommand(t, "letters")
	require.NoError(t, os.WriteFile("letters.xml", []byte(lettersXML), 0o644))

	require.NoError(t, execute(t, "classify", "letters.xml", "--no-load"))

	outPath := filepath.Join("out", "letters_classified.json")
	assert.Contains(t, buf.String(), outPath)

	out := readOutput(t, outPath)
	require.Len(t, out.Documents, 2)
	doc := out.Documents[0]

	aberdeen := findTerm(doc, "Aberdeen, Scotland")
	require.NotNil(t, aberdeen)
	assert.Equal(t, domain.KindPlace, aberdeen.Type)
	assert.Equal(t, domain.AssignURI("Aberdeen, Scotland"), aberdeen.URI)

	agriculture := findTerm(doc, "Agriculture")
	require.NotNil(t, agriculture)
	assert.Equal(t, domain.KindTerm, agriculture.Type)
	assert.Empty(t, agriculture.URI)

	madison := findTerm(doc, "James Madison")
	require.NotNil(t, madison, "a recipient indexed by name is a known person")
	assert.Equal(t, domain.KindPerson, madison.Type)
}

func TestClassifyCmd_ReplayArchiveMissing(t *testing.T) {
	setupCommand(t)
	require.NoError(t, os.WriteFile("letters.xml", []byte(lettersXML), 0o644))

	err := execute(t, "classify", "letters.xml", "--no-load")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
}

func TestClassifyCmd_RequiresAPIKeyInChatMode(t *testing.T) {
	setupCommand(t)
	t.Setenv("CLASSIFIER_MODE", "chat")
	t.Setenv("OPENAI_API_KEY", "")
	require.NoError(t, os.WriteFile("letters.xml", []byte(lettersXML), 0o644))

	err := execute(t, "classify", "letters.xml", "--no-load")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestURICmd(t *testing.T) {
	buf := setupCommand(t)
	out := domain.Output{Documents: []*domain.Document{{
		Authors: []domain.Entity{{Name: "Thomas Jefferson", Type: domain.KindPerson, URI: "stale"}},
	}}}
	data, err := json.Marshal(out)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile("letters_classified.json", data, 0o644))

	require.NoError(t, execute(t, "uri", "letters_classified.json"))

	assert.Contains(t, buf.String(), "Assigned URIs in 1 documents")
	assert.Equal(t, "r87835264", readOutput(t, "letters_classified.json").Documents[0].Authors[0].URI)
}

func TestRunCmd_Replay(t *testing.T) {
	buf := setupCommand(t, "xml")
	require.NoError(t, os.Mkdir("xml", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("xml", "a.xml"), []byte(lettersXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join("xml", "b.xml"), []byte(lettersXML), 0o644))

	require.NoError(t, execute(t, "run", "xml", "--no-load", "--concurrency", "2"))

	assert.Contains(t, buf.String(), "2 succeeded, 0 failed")
	for _, name := range []string{"a", "b"} {
		out := readOutput(t, filepath.Join("out", name+"_classified.json"))
		aberdeen := findTerm(out.Documents[0], "Aberdeen, Scotland")
		require.NotNil(t, aberdeen)
		assert.Equal(t, domain.KindPlace, aberdeen.Type)
	}
}

func TestRunCmd_FailedFileIsReported(t *testing.T) {
	buf := setupCommand(t, "xml")
	require.NoError(t, os.Mkdir("xml", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("xml", "a.xml"), []byte(lettersXML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join("xml", "broken.xml"), []byte("<documents><document>"), 0o644))

	err := execute(t, "run", "xml", "--no-load")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFilesFailed))

	assert.Contains(t, buf.String(), "1 succeeded, 1 failed")
	assert.Contains(t, buf.String(), "FAIL "+filepath.Join("xml", "broken.xml")+" [convert]")
	_, err = os.Stat(filepath.Join("out", "a_classified.json"))
	assert.NoError(t, err)
}

func TestRunCmd_StaleContextIsReplaced(t *testing.T) {
	buf := setupCommand(t, "xml")
	require.NoError(t, os.Mkdir("xml", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("xml", "a.xml"), []byte(lettersXML), 0o644))

	// A previous execution left a cancelled context on the subcommand.
	stale, cancel := context.WithCancel(context.Background())
	cancel()
	runCmd.SetContext(stale)

	require.NoError(t, execute(t, "run", "xml", "--no-load"))
	assert.Contains(t, buf.String(), "1 succeeded, 0 failed")

	buf.Reset()
	require.NoError(t, execute(t, "run", "xml", "--no-load"))
	assert.Contains(t, buf.String(), "1 succeeded, 0 failed")
}

func TestUnprocessedReason(t *testing.T) {
	assert.Equal(t, "not processed", unprocessedReason(nil, nil))
	assert.Equal(t, "not processed: context canceled", unprocessedReason(nil, context.Canceled))
	assert.Equal(t, "not processed: run aborted: auth failed",
		unprocessedReason(errors.New("auth failed"), context.Canceled))
}

func TestTaskPaths(t *testing.T) {
	tasks := []*domain.Task{
		domain.NewProcessFileTask("run-1", "out/a.json"),
		domain.NewProcessFileTask("run-1", "out/b.json"),
	}
	assert.Equal(t, []string{"out/a.json", "out/b.json"}, taskPaths(tasks))
}

func TestRunCmd_EmptyDirectory(t *testing.T) {
	buf := setupCommand(t)
	require.NoError(t, os.Mkdir("xml", 0o755))

	require.NoError(t, execute(t, "run", "xml"))
	assert.Contains(t, buf.String(), "No XML files in xml")
}

func TestSharedCommandsRequireBackend(t *testing.T) {
	for _, args := range [][]string{
		{"enqueue", "xml"},
		{"worker"},
		{"status", "run-1"},
	} {
		t.Run(args[0], func(t *testing.T) {
			setupCommand(t)
			err := execute(t, args...)
			assert.ErrorIs(t, err, errNoSharedBackend)
		})
	}
}

func TestInvalidConfigFailsBeforeCommand(t *testing.T) {
	setupCommand(t)
	t.Setenv("CLASSIFIER_MODE", "bogus")

	err := execute(t, "uri", "missing.json")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "letters", baseName(filepath.Join("data", "letters.xml")))
	assert.Equal(t, "letters.v2", baseName("letters.v2.json"))
}

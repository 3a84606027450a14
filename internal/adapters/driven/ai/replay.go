package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure ReplayClassifier implements Classifier
var _ driven.Classifier = (*ReplayClassifier)(nil)

// ReplayClassifier answers from archived batch files without network calls.
// Terms absent from the archive are omitted from the response.
type ReplayClassifier struct {
	labels map[string]string
	logger *slog.Logger
}

// NewReplayClassifier loads batch_tasks_<name>.jsonl and
// batch_results_<name>.jsonl from dir.
func NewReplayClassifier(dir, name string, logger *slog.Logger) (*ReplayClassifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tasksData, err := os.ReadFile(filepath.Join(dir, TasksFileName(name)))
	if err != nil {
		return nil, domain.NewFatalError(fmt.Errorf("read replay tasks: %w", err))
	}
	resultsData, err := os.ReadFile(filepath.Join(dir, ResultsFileName(name)))
	if err != nil {
		return nil, domain.NewFatalError(fmt.Errorf("read replay results: %w", err))
	}

	terms := parseTaskLines(tasksData)
	results := parseResultLines(resultsData, logger)

	labels := make(map[string]string, len(results))
	for id, label := range results {
		if term, ok := terms[id]; ok {
			labels[domain.NormalizeKey(term)] = label
		}
	}

	logger.Info("loaded replay archive", "name", name, "tasks", len(terms), "classifications", len(labels))
	return &ReplayClassifier{labels: labels, logger: logger}, nil
}

// Name identifies the implementation in logs
func (c *ReplayClassifier) Name() string {
	return "replay"
}

// Classify returns the archived label of every known term.
func (c *ReplayClassifier) Classify(_ context.Context, terms []string) ([]domain.TermClassification, error) {
	out := make([]domain.TermClassification, 0, len(terms))
	for _, term := range terms {
		if label, ok := c.labels[domain.NormalizeKey(term)]; ok {
			out = append(out, domain.TermClassification{Term: term, Classification: label})
		}
	}
	return out, nil
}

// parseTaskLines maps custom_id to the user message of each task.
func parseTaskLines(data []byte) map[string]string {
	terms := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	for scanner.Scan() {
		var task batchTask
		if err := json.Unmarshal(scanner.Bytes(), &task); err != nil {
			continue
		}
		if content := task.Body.userContent(); task.CustomID != "" && content != "" {
			terms[task.CustomID] = content
		}
	}
	return terms
}

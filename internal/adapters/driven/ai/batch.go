package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure BatchClassifier implements Classifier
var _ driven.Classifier = (*BatchClassifier)(nil)

const (
	batchEndpoint         = "/v1/chat/completions"
	batchCompletionWindow = "24h"
)

// batchTask is one line of the JSONL input file
type batchTask struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     chatRequest `json:"body"`
}

// batchResult is one line of the JSONL output file
type batchResult struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		StatusCode int          `json:"status_code"`
		Body       chatResponse `json:"body"`
	} `json:"response"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// batchJob is the OpenAI batch object
type batchJob struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputFileID string `json:"output_file_id"`
	ErrorFileID  string `json:"error_file_id"`
}

func (j *batchJob) terminal() bool {
	switch j.Status {
	case "completed", "failed", "expired", "cancelled":
		return true
	}
	return false
}

// BatchClassifier classifies terms through the OpenAI Batch API: one
// single-term task per term, uploaded as JSONL, polled until the job ends.
// When an archive is configured the task and result lines are appended to
// batch_tasks_<name>.jsonl and batch_results_<name>.jsonl for later replay.
type BatchClassifier struct {
	client       *openAIClient
	model        string
	pollInterval time.Duration
	archiveDir   string
	archiveName  string
	logger       *slog.Logger

	// idPrefix keeps custom IDs distinct across processes appending to one archive
	idPrefix  string
	nextID    atomic.Int64
	archiveMu sync.Mutex
}

// NewBatchClassifier creates a classifier on the Batch API
func NewBatchClassifier(cfg Config) (*BatchClassifier, error) {
	cfg = cfg.withDefaults()
	if err := cfg.requireKey(); err != nil {
		return nil, err
	}
	return &BatchClassifier{
		client:       newOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient, cfg.RequestsPerSecond),
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
		archiveDir:   cfg.ArchiveDir,
		archiveName:  cfg.ArchiveName,
		logger:       cfg.Logger,
		idPrefix:     uuid.NewString()[:8],
	}, nil
}

func (c *BatchClassifier) customID() string {
	return fmt.Sprintf("task-%s-%d", c.idPrefix, c.nextID.Add(1)-1)
}

// Name identifies the implementation in logs
func (c *BatchClassifier) Name() string {
	return "batch"
}

// Classify submits one batch job for terms and waits for it to finish.
func (c *BatchClassifier) Classify(ctx context.Context, terms []string) ([]domain.TermClassification, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	tasks := make([]batchTask, 0, len(terms))
	byID := make(map[string]string, len(terms))
	for _, term := range terms {
		id := c.customID()
		byID[id] = term
		tasks = append(tasks, batchTask{
			CustomID: id,
			Method:   http.MethodPost,
			URL:      batchEndpoint,
			Body:     newChatRequest(c.model, singlePrompt, term),
		})
	}

	input, err := encodeLines(tasks)
	if err != nil {
		return nil, err
	}

	fileID, err := c.upload(ctx, input)
	if err != nil {
		return nil, err
	}

	job, err := c.createJob(ctx, fileID)
	if err != nil {
		return nil, err
	}
	c.logger.Info("batch submitted", "batch_id", job.ID, "batch_size", len(terms))

	job, err = c.wait(ctx, job)
	if err != nil {
		return nil, err
	}
	if job.Status != "completed" {
		return nil, fmt.Errorf("batch %s ended with status %s", job.ID, job.Status)
	}
	if job.OutputFileID == "" {
		return nil, fmt.Errorf("%w: batch %s has no output file", domain.ErrMalformedResponse, job.ID)
	}

	output, err := c.client.do(ctx, http.MethodGet, "/files/"+job.OutputFileID+"/content", "", nil)
	if err != nil {
		return nil, err
	}

	if err := c.archive(input, output); err != nil {
		c.logger.Warn("failed to archive batch", "batch_id", job.ID, "error", err)
	}

	labels := parseResultLines(output, c.logger)
	out := make([]domain.TermClassification, 0, len(labels))
	for _, task := range tasks {
		if label, ok := labels[task.CustomID]; ok {
			out = append(out, domain.TermClassification{Term: byID[task.CustomID], Classification: label})
		}
	}
	return out, nil
}

func (c *BatchClassifier) upload(ctx context.Context, input []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("write purpose: %w", err)
	}
	part, err := w.CreateFormFile("file", "batch_tasks.jsonl")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(input); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	resp, err := c.client.do(ctx, http.MethodPost, "/files", w.FormDataContentType(), body.Bytes())
	if err != nil {
		return "", err
	}

	var file struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &file); err != nil || file.ID == "" {
		return "", fmt.Errorf("%w: upload response", domain.ErrMalformedResponse)
	}
	return file.ID, nil
}

func (c *BatchClassifier) createJob(ctx context.Context, fileID string) (*batchJob, error) {
	resp, err := c.client.postJSON(ctx, "/batches", map[string]string{
		"input_file_id":     fileID,
		"endpoint":          batchEndpoint,
		"completion_window": batchCompletionWindow,
	})
	if err != nil {
		return nil, err
	}
	return decodeJob(resp)
}

// wait polls the job until it reaches a terminal status.
func (c *BatchClassifier) wait(ctx context.Context, job *batchJob) (*batchJob, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !job.terminal() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		resp, err := c.client.do(ctx, http.MethodGet, "/batches/"+job.ID, "", nil)
		if err != nil {
			return nil, err
		}
		if job, err = decodeJob(resp); err != nil {
			return nil, err
		}
		c.logger.Debug("batch status", "batch_id", job.ID, "status", job.Status)
	}
	return job, nil
}

func (c *BatchClassifier) archive(input, output []byte) error {
	if c.archiveDir == "" || c.archiveName == "" {
		return nil
	}

	c.archiveMu.Lock()
	defer c.archiveMu.Unlock()

	if err := os.MkdirAll(c.archiveDir, 0o755); err != nil {
		return err
	}
	if err := appendFile(filepath.Join(c.archiveDir, TasksFileName(c.archiveName)), input); err != nil {
		return err
	}
	return appendFile(filepath.Join(c.archiveDir, ResultsFileName(c.archiveName)), output)
}

// TasksFileName is the archived JSONL input of a corpus.
func TasksFileName(name string) string {
	return "batch_tasks_" + name + ".jsonl"
}

// ResultsFileName is the archived JSONL output of a corpus.
func ResultsFileName(name string) string {
	return "batch_results_" + name + ".jsonl"
}

func decodeJob(data []byte) (*batchJob, error) {
	var job batchJob
	if err := json.Unmarshal(data, &job); err != nil || job.ID == "" {
		return nil, fmt.Errorf("%w: batch response", domain.ErrMalformedResponse)
	}
	return &job, nil
}

func encodeLines[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, fmt.Errorf("encode line: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// parseResultLines maps custom_id to the raw classification label.
// Lines that fail, or whose content does not parse, are omitted.
func parseResultLines(data []byte, logger *slog.Logger) map[string]string {
	labels := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var result batchResult
		if err := json.Unmarshal(line, &result); err != nil {
			logger.Debug("skipping unreadable result line", "error", err)
			continue
		}
		if result.Error != nil || result.Response == nil || result.Response.StatusCode != http.StatusOK {
			logger.Debug("skipping failed result line", "custom_id", result.CustomID)
			continue
		}

		content, err := result.Response.Body.content()
		if err != nil {
			continue
		}
		label, err := parseSingle(content)
		if err != nil {
			logger.Debug("skipping malformed classification", "custom_id", result.CustomID, "error", err)
			continue
		}
		labels[result.CustomID] = label
	}
	return labels
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure ChatClassifier implements Classifier
var _ driven.Classifier = (*ChatClassifier)(nil)

// ChatClassifier classifies one batch of terms per chat/completions call.
type ChatClassifier struct {
	client *openAIClient
	model  string
	logger *slog.Logger
}

// NewChatClassifier creates a classifier on the synchronous chat endpoint
func NewChatClassifier(cfg Config) (*ChatClassifier, error) {
	cfg = cfg.withDefaults()
	if err := cfg.requireKey(); err != nil {
		return nil, err
	}
	return &ChatClassifier{
		client: newOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient, cfg.RequestsPerSecond),
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

// Name identifies the implementation in logs
func (c *ChatClassifier) Name() string {
	return "chat"
}

// Classify sends the terms as one newline-separated message.
func (c *ChatClassifier) Classify(ctx context.Context, terms []string) ([]domain.TermClassification, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	req := newChatRequest(c.model, batchPrompt, strings.Join(terms, "\n"))
	body, err := c.client.postJSON(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrMalformedResponse, err)
	}
	content, err := resp.content()
	if err != nil {
		return nil, err
	}

	out, err := parseClassifications(content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("classified batch", "classifier", c.Name(), "batch_size", len(terms), "returned", len(out))
	return out, nil
}

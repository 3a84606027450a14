package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// Default configuration values
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	// maxResponseSize bounds how much of a response body is read
	maxResponseSize = 64 << 20
)

// openAIClient is the HTTP plumbing shared by the chat and batch classifiers.
// Every request waits on the limiter and classifies its failure.
type openAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func newOpenAIClient(apiKey, baseURL string, httpClient *http.Client, rps float64) *openAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &openAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// apiError is the error envelope of the OpenAI API
type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// do sends one request and returns the body of a 2xx response.
// Network errors, 429 and 5xx are transient; 401 and 403 are fatal.
func (c *openAIClient) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewTransientError(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, statusError(resp.StatusCode, respBody)
}

func (c *openAIClient) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", body)
}

func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var envelope apiError
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		message = envelope.Error.Message
	}
	err := fmt.Errorf("openai error (status %d): %s", status, message)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewFatalError(fmt.Errorf("%w: %w", domain.ErrUnauthorized, err))
	case status == http.StatusTooManyRequests || status >= 500:
		return domain.NewTransientError(fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err))
	default:
		return err
	}
}

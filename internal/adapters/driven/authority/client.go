package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure Client implements AuthorityLookup
var _ driven.AuthorityLookup = (*Client)(nil)

// Default configuration values
const (
	DefaultBaseURL = "https://viaf.org/viaf/AutoSuggest"
	DefaultTimeout = 30 * time.Second
	DefaultRPS     = 1.0

	maxResponseSize = 4 << 20
)

// Config holds configuration for the authority client
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client queries a VIAF AutoSuggest endpoint for personal names.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates an authority client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRPS
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  cfg.Logger,
	}
}

// suggestResponse is the AutoSuggest response format
type suggestResponse struct {
	Query  string `json:"query"`
	Result []struct {
		Term     string `json:"term"`
		NameType string `json:"nametype"`
		ViafID   string `json:"viafid"`
		LC       string `json:"lc"`
	} `json:"result"`
}

// Lookup returns the candidate best matching yearHint, or nil when the
// authority file has no personal-name candidates.
func (c *Client) Lookup(ctx context.Context, name, yearHint string) (*domain.AuthorityRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?query="+url.QueryEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.NewTransientError(fmt.Errorf("authority request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.NewFatalError(fmt.Errorf("%w: authority status %d", domain.ErrUnauthorized, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, domain.NewTransientError(fmt.Errorf("%w: authority status %d", domain.ErrServiceUnavailable, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("authority status %d", resp.StatusCode)
	}

	var suggest suggestResponse
	if err := json.Unmarshal(body, &suggest); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	candidates := make([]domain.AuthorityCandidate, 0, len(suggest.Result))
	for _, r := range suggest.Result {
		if r.ViafID == "" || (r.NameType != "" && r.NameType != "personal") {
			continue
		}
		candidates = append(candidates, domain.AuthorityCandidate{
			Label:     r.Term,
			ClusterID: r.ViafID,
			LocalCode: r.LC,
		})
	}

	best := domain.SelectAuthorityCandidate(candidates, yearHint)
	if best == nil {
		c.logger.Debug("no authority candidates", "name", name)
		return nil, nil
	}

	return &domain.AuthorityRecord{
		ClusterID:      best.ClusterID,
		LocalCode:      best.LocalCode,
		PreferredLabel: best.Label,
	}, nil
}

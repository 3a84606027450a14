package ai

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Classifier modes
const (
	ModeChat   = "chat"
	ModeBatch  = "batch"
	ModeReplay = "replay"
)

// DefaultPollInterval is how often a batch job's status is checked
const DefaultPollInterval = 5 * time.Second

// Config configures every classifier implementation
type Config struct {
	// Mode selects the implementation: chat, batch or replay
	Mode string

	APIKey  string
	Model   string
	BaseURL string

	// RequestsPerSecond throttles outgoing requests (0 = unlimited)
	RequestsPerSecond float64

	// PollInterval is the batch status polling period
	PollInterval time.Duration

	// ArchiveDir/ArchiveName enable archiving of batch files
	ArchiveDir  string
	ArchiveName string

	// ReplayDir/ReplayName locate the archive read in replay mode
	ReplayDir  string
	ReplayName string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) requireKey() error {
	if c.APIKey == "" {
		return domain.NewFatalError(fmt.Errorf("OpenAI API key is required: %w", domain.ErrUnauthorized))
	}
	return nil
}

// NewClassifier creates the classifier selected by cfg.Mode
func NewClassifier(cfg Config) (driven.Classifier, error) {
	switch cfg.Mode {
	case ModeChat, "":
		return NewChatClassifier(cfg)
	case ModeBatch:
		return NewBatchClassifier(cfg)
	case ModeReplay:
		return NewReplayClassifier(cfg.ReplayDir, cfg.ReplayName, cfg.Logger)
	default:
		return nil, fmt.Errorf("%w: unknown classifier mode %q", domain.ErrInvalidInput, cfg.Mode)
	}
}

// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// Registry scopes
const (
	ScopeRun    = "run"
	ScopeWorker = "worker"
)

// Config holds every setting of the findingaid binary.
type Config struct {
	// Classification
	OpenAIAPIKey      string        // OPENAI_API_KEY
	OpenAIModel       string        // OPENAI_MODEL (default: gpt-4o-mini)
	OpenAIBaseURL     string        // OPENAI_BASE_URL
	ClassifierMode    string        // CLASSIFIER_MODE: chat | batch | replay
	ClassifyBatchSize int           // CLASSIFY_BATCH_SIZE (default: 50)
	ClassifyRPS       float64       // CLASSIFY_RPS (default: 2)
	BatchPollInterval time.Duration // BATCH_POLL_INTERVAL (default: 5s)
	ReplayDir         string        // REPLAY_DIR
	RetryMaxAttempts  int           // RETRY_MAX_ATTEMPTS (default: 3)
	RetryDelay        time.Duration // RETRY_DELAY (default: 2s)

	// Graph database
	Neo4jURI      string // NEO4J_URI
	Neo4jUser     string // NEO4J_USER
	Neo4jPassword string // NEO4J_PASSWORD
	Neo4jDatabase string // NEO4J_DATABASE

	// Shared state
	RedisURL      string // REDIS_URL
	DatabaseURL   string // DATABASE_URL
	RegistryScope string // REGISTRY_SCOPE: run | worker
	Namespace     string // REGISTRY_NAMESPACE (default: default)

	// Authority file
	AuthorityEnabled bool    // AUTHORITY_ENABLED
	AuthorityBaseURL string  // AUTHORITY_BASE_URL
	AuthorityRPS     float64 // AUTHORITY_RPS (default: 1)

	// Worker
	WorkerConcurrency    int // WORKER_CONCURRENCY (default: 3)
	WorkerDequeueTimeout int // WORKER_DEQUEUE_TIMEOUT seconds (default: 5)

	// Output
	DataDir   string // DATA_DIR (default: data)
	LogLevel  string // LOG_LEVEL (default: info)
	LogFormat string // LOG_FORMAT: text | json

	// EnvFile path loaded at startup
	EnvFile string
}

// Load reads config from environment variables (after loading the .env file if present).
// Caller may override individual fields after calling Load.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		// Try default .env silently
		_ = godotenv.Load()
	}

	cfg := &Config{
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClassifierMode:    strings.ToLower(getEnv("CLASSIFIER_MODE", "chat")),
		ClassifyBatchSize: getEnvInt("CLASSIFY_BATCH_SIZE", 50),
		ClassifyRPS:       getEnvFloat("CLASSIFY_RPS", 2),
		BatchPollInterval: getEnvDuration("BATCH_POLL_INTERVAL", 5*time.Second),
		ReplayDir:         os.Getenv("REPLAY_DIR"),
		RetryMaxAttempts:  getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryDelay:        getEnvDuration("RETRY_DELAY", 2*time.Second),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase: os.Getenv("NEO4J_DATABASE"),

		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RegistryScope: strings.ToLower(getEnv("REGISTRY_SCOPE", ScopeRun)),
		Namespace:     getEnv("REGISTRY_NAMESPACE", "default"),

		AuthorityEnabled: getEnvBool("AUTHORITY_ENABLED", false),
		AuthorityBaseURL: getEnv("AUTHORITY_BASE_URL", "https://viaf.org/viaf/AutoSuggest"),
		AuthorityRPS:     getEnvFloat("AUTHORITY_RPS", 1),

		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 3),
		WorkerDequeueTimeout: getEnvInt("WORKER_DEQUEUE_TIMEOUT", 5),

		DataDir:   getEnv("DATA_DIR", "data"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		EnvFile:   envFile,
	}

	return cfg, nil
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	switch c.ClassifierMode {
	case "chat", "batch", "replay":
	default:
		return fmt.Errorf("%w: CLASSIFIER_MODE must be chat, batch or replay, got %q", domain.ErrInvalidInput, c.ClassifierMode)
	}
	switch c.RegistryScope {
	case ScopeRun, ScopeWorker:
	default:
		return fmt.Errorf("%w: REGISTRY_SCOPE must be run or worker, got %q", domain.ErrInvalidInput, c.RegistryScope)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be text or json, got %q", domain.ErrInvalidInput, c.LogFormat)
	}
	if c.ClassifyBatchSize <= 0 {
		return fmt.Errorf("%w: CLASSIFY_BATCH_SIZE must be positive", domain.ErrInvalidInput)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("%w: WORKER_CONCURRENCY must be positive", domain.ErrInvalidInput)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: DATA_DIR is required", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateClassifier checks the settings needed to classify terms.
func (c *Config) ValidateClassifier() error {
	if c.ClassifierMode == "replay" {
		if c.ReplayDir == "" {
			return fmt.Errorf("%w: REPLAY_DIR is required in replay mode", domain.ErrInvalidInput)
		}
		return nil
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateGraph checks the settings needed to load the graph database.
func (c *Config) ValidateGraph() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("%w: NEO4J_URI is required", domain.ErrInvalidInput)
	}
	return nil
}

// RetryPolicy returns the external-call retry policy.
func (c *Config) RetryPolicy() domain.RetryPolicy {
	policy := domain.DefaultRetryPolicy()
	if c.RetryMaxAttempts > 0 {
		policy.MaxAttempts = c.RetryMaxAttempts
	}
	if c.RetryDelay > 0 {
		policy.Delay = c.RetryDelay
	}
	return policy
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are seconds
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

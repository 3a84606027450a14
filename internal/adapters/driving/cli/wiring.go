package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/findingaid/internal/adapters/driven/ai"
	"github.com/custodia-labs/findingaid/internal/adapters/driven/authority"
	"github.com/custodia-labs/findingaid/internal/adapters/driven/jsonstore"
	"github.com/custodia-labs/findingaid/internal/adapters/driven/memory"
	"github.com/custodia-labs/findingaid/internal/adapters/driven/neo4j"
	"github.com/custodia-labs/findingaid/internal/adapters/driven/postgres"
	memqueue "github.com/custodia-labs/findingaid/internal/adapters/driven/queue/memory"
	pgqueue "github.com/custodia-labs/findingaid/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/findingaid/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/findingaid/internal/adapters/driven/redis"
	"github.com/custodia-labs/findingaid/internal/adapters/driven/xmlsource"
	"github.com/custodia-labs/findingaid/internal/config"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
	"github.com/custodia-labs/findingaid/internal/core/services"
)

// errNoSharedBackend is returned by commands that coordinate processes.
var errNoSharedBackend = errors.New("REDIS_URL or DATABASE_URL is required to share work between processes")

// backends holds the optional shared infrastructure.
// Redis is preferred, then PostgreSQL, then process memory.
type backends struct {
	redis *redis.Client
	db    *postgres.DB
}

func openBackends(ctx context.Context) (*backends, error) {
	b := &backends{}

	if cfg.RedisURL != "" {
		logger.Debug("connecting to redis")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		b.redis = redis.NewClient(opts)
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	if cfg.DatabaseURL != "" && b.redis == nil {
		logger.Debug("connecting to postgres")
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.DefaultPool)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.db = db
	}

	return b, nil
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

// shared reports whether state is visible to other processes.
func (b *backends) shared() bool {
	return b.redis != nil || b.db != nil
}

func (b *backends) entityStore() driven.EntityStore {
	switch {
	case b.redis != nil:
		return redisadapter.NewEntityStore(b.redis, cfg.Namespace)
	case b.db != nil:
		return postgres.NewEntityStore(b.db.DB, cfg.Namespace)
	default:
		return memory.NewEntityStore()
	}
}

func (b *backends) resultStore() driven.ResultStore {
	switch {
	case b.redis != nil:
		return redisadapter.NewResultStore(b.redis, redisadapter.DefaultResultTTL)
	case b.db != nil:
		return postgres.NewResultStore(b.db.DB)
	default:
		return memory.NewResultStore()
	}
}

func (b *backends) taskQueue(consumer string) (driven.TaskQueue, error) {
	switch {
	case b.redis != nil:
		return redisqueue.NewQueue(b.redis, consumer)
	case b.db != nil:
		return pgqueue.NewQueue(b.db.DB), nil
	default:
		return memqueue.NewQueue(), nil
	}
}

// pipelineOptions selects the stages a command needs.
type pipelineOptions struct {
	classify    bool
	load        bool
	archiveName string
}

// pipeline is an orchestrator plus the resources it owns.
type pipeline struct {
	*services.PipelineOrchestrator
	sink driven.GraphSink
}

func (p *pipeline) Close(ctx context.Context) {
	if p.sink != nil {
		_ = p.sink.Close(ctx)
	}
}

func newPipeline(ctx context.Context, b *backends, opts pipelineOptions) (*pipeline, error) {
	policy := cfg.RetryPolicy()
	registry := services.NewKnownEntityRegistry(b.entityStore(), logger)

	mergerConfig := services.ClassificationMergerConfig{
		BatchSize: cfg.ClassifyBatchSize,
		Retry:     policy,
		Logger:    logger,
	}
	if opts.classify {
		if err := cfg.ValidateClassifier(); err != nil {
			return nil, err
		}
		classifier, err := ai.NewClassifier(ai.Config{
			Mode:              cfg.ClassifierMode,
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.OpenAIModel,
			BaseURL:           cfg.OpenAIBaseURL,
			RequestsPerSecond: cfg.ClassifyRPS,
			PollInterval:      cfg.BatchPollInterval,
			ArchiveDir:        filepath.Join(cfg.DataDir, "batches"),
			ArchiveName:       opts.archiveName,
			ReplayDir:         cfg.ReplayDir,
			ReplayName:        opts.archiveName,
			Logger:            logger,
		})
		if err != nil {
			return nil, err
		}
		mergerConfig.Classifier = classifier
		logger.Debug("classifier ready", "classifier", classifier.Name())
	}

	var enricher *services.AuthorityEnricher
	if opts.classify && cfg.AuthorityEnabled {
		enricher = services.NewAuthorityEnricher(services.AuthorityEnricherConfig{
			Lookup: authority.NewClient(authority.Config{
				BaseURL:           cfg.AuthorityBaseURL,
				RequestsPerSecond: cfg.AuthorityRPS,
				Logger:            logger,
			}),
			Retry:  policy,
			Logger: logger,
		})
	}

	p := &pipeline{}
	if opts.load {
		if err := cfg.ValidateGraph(); err != nil {
			return nil, err
		}
		sink, err := neo4j.NewSink(ctx, neo4j.Config{
			URI:      cfg.Neo4jURI,
			User:     cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		p.sink = sink
	}

	p.PipelineOrchestrator = services.NewPipelineOrchestrator(services.PipelineOrchestratorConfig{
		Source:   xmlsource.NewSource(logger),
		Store:    jsonstore.NewStore(),
		Merger:   services.NewClassificationMerger(mergerConfig),
		Enricher: enricher,
		Sink:     p.sink,
		Registry: registry,
		DataDir:  cfg.DataDir,
		Parallel: cfg.WorkerConcurrency,
		Logger:   logger,
	})
	return p, nil
}

// workerRegistries returns a per-goroutine registry factory in worker scope.
func workerRegistries() func() *services.KnownEntityRegistry {
	if cfg.RegistryScope != config.ScopeWorker {
		return nil
	}
	return func() *services.KnownEntityRegistry {
		return services.NewKnownEntityRegistry(memory.NewEntityStore(), logger)
	}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

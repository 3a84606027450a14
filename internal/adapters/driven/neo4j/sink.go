package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Ensure Sink implements GraphSink
var _ driven.GraphSink = (*Sink)(nil)

// Config holds Neo4j connection configuration
type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Logger   *slog.Logger
}

// Sink writes documents to Neo4j, one write transaction per document.
type Sink struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewSink creates the driver and verifies connectivity.
// A failure here is fatal: the sink is unreachable or the credentials are wrong.
func NewSink(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, domain.NewFatalError(fmt.Errorf("create neo4j driver: %w", err))
	}

	sink := &Sink{driver: driver, database: cfg.Database, logger: cfg.Logger}
	if err := sink.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return sink, nil
}

// Load upserts each document in its own write transaction.
func (s *Sink) Load(ctx context.Context, docs []*domain.Document) (*driven.LoadStats, error) {
	stats := &driven.LoadStats{}

	var session neo4j.SessionWithContext
	defer func() {
		if session != nil {
			_ = session.Close(ctx)
		}
	}()

	for _, doc := range docs {
		stmts := Plan(doc)
		if stmts == nil {
			stats.Skipped++
			s.logger.Warn("skipping document without id", "error", domain.ErrMissingDocumentID)
			continue
		}

		if session == nil {
			session = s.driver.NewSession(ctx, neo4j.SessionConfig{
				AccessMode:   neo4j.AccessModeWrite,
				DatabaseName: s.database,
			})
		}

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, stmt := range stmts {
				result, err := tx.Run(ctx, stmt.Query, stmt.Params)
				if err != nil {
					return nil, err
				}
				if _, err := result.Consume(ctx); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		if err != nil {
			err = classifyError(fmt.Errorf("load document %s: %w", doc.ID(), err))
			if domain.IsFatal(err) || ctx.Err() != nil {
				return stats, err
			}
			stats.Failed++
			s.logger.Warn("failed to load document", "document_id", doc.ID(), "error", err)
			continue
		}
		stats.Loaded++
	}

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d documents failed to load", stats.Failed, len(docs))
	}
	return stats, nil
}

// Ping verifies connectivity and credentials
func (s *Sink) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return domain.NewFatalError(fmt.Errorf("neo4j unreachable: %w", err))
	}
	return nil
}

// Close releases the driver
func (s *Sink) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// classifyError marks security and connectivity failures as fatal.
func classifyError(err error) error {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return domain.NewFatalError(fmt.Errorf("%w: %w", domain.ErrUnauthorized, err))
	}
	if neo4j.IsConnectivityError(err) {
		return domain.NewFatalError(err)
	}
	return err
}

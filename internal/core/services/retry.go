package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// policy runs out of attempts. Waits between attempts follow policy.Backoff
// and end early when ctx is cancelled. The exhausted error keeps its
// transient class.
func Retry(ctx context.Context, policy domain.RetryPolicy, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	attempts := policy.Attempts()
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := policy.Backoff(attempt)
		logger.Warn("transient failure, retrying",
			"op", op,
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, err)
}

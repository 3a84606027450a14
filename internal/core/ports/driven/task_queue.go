package driven

import (
	"context"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// TaskQueue hands process_file tasks to workers. Backends: Redis Streams,
// a PostgreSQL table, or process memory for a local run.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *domain.Task) error

	// EnqueueBatch adds the tasks of a run in order, all or nothing.
	EnqueueBatch(ctx context.Context, tasks []*domain.Task) error

	// DequeueWithTimeout claims the next pending task for this consumer,
	// waiting up to timeout seconds. It returns nil, nil when nothing arrived
	// in time or ctx ended while waiting.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a claimed task completed.
	Ack(ctx context.Context, taskID string) error

	// Nack puts a claimed task back for another attempt, or marks it failed
	// once MaxAttempts is used up. reason is kept as the task's error.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask returns the current state of a task, or domain.ErrNotFound.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	Stats(ctx context.Context) (*QueueStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// QueueStats counts tasks by status.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`
}

// Idle reports whether nothing is pending or in flight.
func (s *QueueStats) Idle() bool {
	return s.PendingCount == 0 && s.ProcessingCount == 0
}

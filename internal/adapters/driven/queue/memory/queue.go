// Package memory implements a process-local TaskQueue for single-machine runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue is a FIFO of tasks guarded by a mutex.
// Waiting dequeuers are woken by closing the current wake channel.
type Queue struct {
	mu      sync.Mutex
	tasks   map[string]*domain.Task
	pending []string
	wake    chan struct{}
	closed  bool
}

// NewQueue creates an empty in-memory queue
func NewQueue() *Queue {
	return &Queue{
		tasks: make(map[string]*domain.Task),
		wake:  make(chan struct{}),
	}
}

// Enqueue adds a task to the queue for processing.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch adds multiple tasks in order.
func (q *Queue) EnqueueBatch(_ context.Context, tasks []*domain.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}

	added := 0
	for _, task := range tasks {
		if task == nil {
			continue
		}
		stored := *task
		q.tasks[task.ID] = &stored
		q.pending = append(q.pending, task.ID)
		added++
	}

	if added > 0 {
		q.signal()
	}
	return nil
}

// signal wakes every waiting dequeuer. Caller holds q.mu.
func (q *Queue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// DequeueWithTimeout retrieves the next task, waiting up to timeout seconds.
// A timeout of 0 waits until a task arrives, the queue closes or ctx ends.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(time.Duration(timeout) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			id := q.pending[0]
			q.pending = q.pending[1:]
			task := q.tasks[id]
			task.MarkProcessing()
			out := *task
			q.mu.Unlock()
			return &out, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, domain.ErrQueueClosed
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-deadline:
			return nil, nil
		case <-ctx.Done():
			return nil, nil
		}
	}
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	task.MarkCompleted()
	return nil
}

// Nack returns the task to the back of the queue until its attempts are used up.
func (q *Queue) Nack(_ context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}

	if !task.CanRetry() || q.closed {
		task.MarkFailed(reason)
		return nil
	}

	task.Retry(reason)
	q.pending = append(q.pending, taskID)
	q.signal()
	return nil
}

// GetTask retrieves a copy of a task by ID.
func (q *Queue) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	out := *task
	return &out, nil
}

// Stats returns queue statistics.
func (q *Queue) Stats(_ context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := &driven.QueueStats{}
	for _, task := range q.tasks {
		switch task.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

// Ping always succeeds while the queue is open.
func (q *Queue) Ping(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return domain.ErrQueueClosed
	}
	return nil
}

// Close stops accepting tasks and releases waiting dequeuers.
// Tasks still pending are left in place and reported by Stats.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		q.signal()
	}
	return nil
}

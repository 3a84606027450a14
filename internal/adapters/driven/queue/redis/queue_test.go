package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

func setupTestQueue(t *testing.T) (*Queue, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	return q, func() {
		client.Close()
		mr.Close()
	}
}

func TestNewQueue_RequiresClient(t *testing.T) {
	if _, err := NewQueue(nil, ""); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestNewQueue_ExistingGroup(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	if _, err := NewQueue(client, "a"); err != nil {
		t.Fatalf("first queue: %v", err)
	}
	if _, err := NewQueue(client, "b"); err != nil {
		t.Fatalf("second queue must reuse the group: %v", err)
	}
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessFileTask("run-1", "data/letters.json")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.PendingCount != 1 || stats.ProcessingCount != 0 {
		t.Errorf("unexpected stats after enqueue: %+v", stats)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID || got.Path() != "data/letters.json" || got.RunID != "run-1" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.Status != domain.TaskStatusProcessing || got.Attempts != 1 {
		t.Errorf("expected processing with 1 attempt, got %s/%d", got.Status, got.Attempts)
	}

	stats, _ = q.Stats(ctx)
	if stats.PendingCount != 0 || stats.ProcessingCount != 1 {
		t.Errorf("unexpected stats while processing: %+v", stats)
	}

	if err := q.Ack(ctx, got.ID); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	stored, err := q.GetTask(ctx, got.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if stored.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", stored.Status)
	}

	stats, _ = q.Stats(ctx)
	if !stats.Idle() || stats.CompletedCount != 1 {
		t.Errorf("unexpected stats after ack: %+v", stats)
	}
}

func TestQueue_EnqueueBatchOrder(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	tasks := []*domain.Task{
		domain.NewProcessFileTask("run-1", "a.xml"),
		nil,
		domain.NewProcessFileTask("run-1", "b.xml"),
	}
	if err := q.EnqueueBatch(ctx, tasks); err != nil {
		t.Fatalf("EnqueueBatch failed: %v", err)
	}

	for _, want := range []string{"a.xml", "b.xml"} {
		got, err := q.DequeueWithTimeout(ctx, 1)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if got == nil || got.Path() != want {
			t.Fatalf("expected %s, got %+v", want, got)
		}
	}

	if err := q.EnqueueBatch(ctx, nil); err != nil {
		t.Errorf("empty batch should be a no-op: %v", err)
	}
}

func TestQueue_NackRetriesThenFails(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessFileTask("run-1", "a.xml")
	task.MaxAttempts = 2
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	got, _ := q.DequeueWithTimeout(ctx, 1)
	if err := q.Nack(ctx, got.ID, "classifier unavailable"); err != nil {
		t.Fatalf("Nack failed: %v", err)
	}

	retried, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if retried == nil || retried.ID != task.ID {
		t.Fatalf("expected the task back, got %+v", retried)
	}
	if retried.Attempts != 2 || retried.Error != "classifier unavailable" {
		t.Errorf("unexpected retried task: %+v", retried)
	}

	if err := q.Nack(ctx, retried.ID, "still unavailable"); err != nil {
		t.Fatalf("Nack failed: %v", err)
	}

	stored, _ := q.GetTask(ctx, task.ID)
	if stored.Status != domain.TaskStatusFailed || stored.Error != "still unavailable" {
		t.Errorf("expected failed task, got %+v", stored)
	}

	stats, _ := q.Stats(ctx)
	if !stats.Idle() || stats.FailedCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestQueue_GetTaskNotFound(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	_, err := q.GetTask(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := q.Ack(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound from Ack, got %v", err)
	}
}

func TestQueue_DropsEntryWithoutBody(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessFileTask("run-1", "a.xml")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	q.client.Del(ctx, taskKeyPrefix+task.ID)

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for expired task, got %+v", got)
	}

	stats, _ := q.Stats(ctx)
	if !stats.Idle() {
		t.Errorf("expected dropped entry, got %+v", stats)
	}
}

func TestQueue_Ping(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	a := domain.NewProcessFileTask("run", "a.xml")
	b := domain.NewProcessFileTask("run", "b.xml")
	if err := q.EnqueueBatch(ctx, []*domain.Task{a, nil, b}); err != nil {
		t.Fatalf("EnqueueBatch failed: %v", err)
	}

	for _, want := range []string{"a.xml", "b.xml"} {
		task, err := q.DequeueWithTimeout(ctx, 1)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if task == nil || task.Path() != want {
			t.Fatalf("expected %s, got %+v", want, task)
		}
		if task.Status != domain.TaskStatusProcessing {
			t.Errorf("expected processing, got %s", task.Status)
		}
	}
}

func TestQueue_DequeueWaitsForEnqueue(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	done := make(chan *domain.Task)
	go func() {
		task, _ := q.DequeueWithTimeout(ctx, 5)
		done <- task
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Enqueue(ctx, domain.NewProcessFileTask("run", "late.xml"))

	select {
	case task := <-done:
		if task == nil || task.Path() != "late.xml" {
			t.Errorf("unexpected task: %+v", task)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue was not woken")
	}
}

func TestQueue_DequeueContextCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil || task != nil {
		t.Errorf("expected nil, nil; got %+v, %v", task, err)
	}
}

func TestQueue_NackRetryThenFail(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	task := domain.NewProcessFileTask("run", "a.xml")
	task.MaxAttempts = 2
	_ = q.Enqueue(ctx, task)

	got, _ := q.DequeueWithTimeout(ctx, 1)
	if err := q.Nack(ctx, got.ID, "first"); err != nil {
		t.Fatalf("Nack failed: %v", err)
	}

	got, _ = q.DequeueWithTimeout(ctx, 1)
	if got == nil || got.Attempts != 2 {
		t.Fatalf("expected second attempt, got %+v", got)
	}
	_ = q.Nack(ctx, got.ID, "second")

	stored, _ := q.GetTask(ctx, task.ID)
	if stored.Status != domain.TaskStatusFailed || stored.Error != "second" {
		t.Errorf("expected failed task, got %+v", stored)
	}

	stats, _ := q.Stats(ctx)
	if !stats.Idle() || stats.FailedCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestQueue_AckAndStats(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	_ = q.Enqueue(ctx, domain.NewProcessFileTask("run", "a.xml"))
	_ = q.Enqueue(ctx, domain.NewProcessFileTask("run", "b.xml"))

	got, _ := q.DequeueWithTimeout(ctx, 1)
	stats, _ := q.Stats(ctx)
	if stats.PendingCount != 1 || stats.ProcessingCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := q.Ack(ctx, got.ID); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}
	stats, _ = q.Stats(ctx)
	if stats.CompletedCount != 1 {
		t.Errorf("expected one completed, got %+v", stats)
	}

	if err := q.Ack(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	done := make(chan error)
	go func() {
		_, err := q.DequeueWithTimeout(ctx, 0)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("close did not release the waiting dequeuer")
	}

	if err := q.Enqueue(ctx, domain.NewProcessFileTask("run", "a.xml")); !errors.Is(err, domain.ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed on enqueue, got %v", err)
	}
	if err := q.Ping(ctx); err == nil {
		t.Error("expected ping to fail after close")
	}
}

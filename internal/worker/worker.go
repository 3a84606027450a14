package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
	"github.com/custodia-labs/findingaid/internal/core/services"
)

// Worker processes tasks from the task queue.
// It runs the pipeline orchestrator for each process_file task.
type Worker struct {
	taskQueue    driven.TaskQueue
	orchestrator *services.PipelineOrchestrator
	results      driven.ResultStore
	summary      *services.RunSummary
	newRegistry  func() *services.KnownEntityRegistry
	onFatal      func(error)
	logger       *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds
	exitWhenIdle   bool

	// Internal state
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	cancel     context.CancelFunc
	fatalOnce  sync.Once
	fatalErr   error
	registries []*services.KnownEntityRegistry
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue    driven.TaskQueue
	Orchestrator *services.PipelineOrchestrator
	Logger       *slog.Logger

	// Results records every file result under the task's run ID (optional).
	Results driven.ResultStore

	// Summary collects file results in process (optional).
	Summary *services.RunSummary

	// NewRegistry gives each goroutine its own registry when set.
	// Otherwise every goroutine shares the orchestrator's registry.
	NewRegistry func() *services.KnownEntityRegistry

	// FatalHandler is called once with the first fatal error.
	FatalHandler func(error)

	Concurrency    int  // Number of concurrent task processors
	DequeueTimeout int  // Seconds to wait for a task before checking again
	ExitWhenIdle   bool // Stop goroutines once the queue is drained
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		orchestrator:   cfg.Orchestrator,
		results:        cfg.Results,
		summary:        cfg.Summary,
		newRegistry:    cfg.NewRegistry,
		onFatal:        cfg.FatalHandler,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
		exitWhenIdle:   cfg.ExitWhenIdle,
	}
}

// Start begins the worker loop.
// It runs until Stop is called, the context is cancelled, a fatal error
// occurs, or the queue drains when ExitWhenIdle is set.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)

	registries := make([]*services.KnownEntityRegistry, w.concurrency)
	if w.newRegistry != nil {
		for i := range registries {
			registries[i] = w.newRegistry()
		}
		w.registries = registries
	}
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
		"per_worker_registry", w.newRegistry != nil,
	)

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID, registries[workerID])
		}(i)
	}

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		w.cancel()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	w.mu.Unlock()

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops. It returns immediately if the worker
// was never started.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done == nil {
		return
	}
	<-done
}

// Err returns the fatal error that stopped the worker, if any.
func (w *Worker) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fatalErr
}

// Reconcile folds the per-goroutine registries into the orchestrator's
// registry. It is a no-op when goroutines share one registry.
func (w *Worker) Reconcile(ctx context.Context) (services.ReconcileStats, error) {
	w.mu.RLock()
	registries := w.registries
	w.mu.RUnlock()

	if len(registries) == 0 {
		return services.ReconcileStats{}, nil
	}
	stats, err := services.Reconcile(ctx, w.orchestrator.Registry(), registries...)
	if err != nil {
		return stats, err
	}
	w.logger.Info("registries reconciled", "merged", stats.Merged, "conflicts", stats.Conflicts)
	return stats, nil
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int, registry *services.KnownEntityRegistry) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Debug("worker stop signal received")
			return
		default:
		}

		// Dequeue a task with timeout
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, domain.ErrQueueClosed) {
				logger.Info("task queue closed")
				return
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			if w.exitWhenIdle && w.idle(ctx) {
				logger.Debug("queue drained")
				return
			}
			continue
		}

		// Process the task
		w.processTask(ctx, task, registry, logger)
	}
}

func (w *Worker) idle(ctx context.Context) bool {
	stats, err := w.taskQueue.Stats(ctx)
	if err != nil {
		return false
	}
	return stats.Idle()
}

// processTask processes a single task.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, registry *services.KnownEntityRegistry, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "run_id", task.RunID)
	logger.Debug("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeProcessFile:
		err = w.handleProcessFile(ctx, task, registry)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"attempts", task.Attempts,
			"error", err,
		)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(context.WithoutCancel(ctx), task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}

		if domain.IsFatal(err) {
			w.fail(err)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	// Ack the task
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleProcessFile handles a process_file task.
func (w *Worker) handleProcessFile(ctx context.Context, task *domain.Task, registry *services.KnownEntityRegistry) error {
	path := task.Path()
	if path == "" {
		return fmt.Errorf("path not found in task payload")
	}
	if w.orchestrator == nil {
		return fmt.Errorf("no pipeline configured")
	}

	result, err := w.orchestrator.Process(ctx, path, services.ProcessOptions{Registry: registry})
	if result != nil {
		w.record(ctx, task.RunID, result)
	}
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%s failed: %s", result.Stage, result.Error)
	}

	return nil
}

func (w *Worker) record(ctx context.Context, runID string, result *domain.FileResult) {
	if w.summary != nil {
		w.summary.Add(result)
	}
	if w.results != nil {
		if err := w.results.Save(context.WithoutCancel(ctx), runID, result); err != nil {
			w.logger.Warn("failed to save file result", "file", result.Path, "error", err)
		}
	}
}

// fail records the first fatal error and stops every goroutine.
func (w *Worker) fail(err error) {
	w.fatalOnce.Do(func() {
		w.mu.Lock()
		w.fatalErr = err
		cancel := w.cancel
		w.mu.Unlock()

		w.logger.Error("fatal error, stopping worker", "error", err)
		if w.onFatal != nil {
			w.onFatal(err)
		}
		if cancel != nil {
			cancel()
		}
	})
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	// Check queue health
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}

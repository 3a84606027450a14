package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/findingaid/internal/worker"
)

var (
	workerNoLoad      bool
	workerConcurrency int
	workerArchiveName string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued files until interrupted",
	Long: `Consumes process_file tasks from the shared queue and runs the pipeline
for each of them. Requires REDIS_URL or DATABASE_URL. Stops on SIGINT or
SIGTERM, or on an authentication failure.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerNoLoad, "no-load", false, "Skip loading outputs into Neo4j")
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Tasks processed in parallel (default: WORKER_CONCURRENCY)")
	workerCmd.Flags().StringVar(&workerArchiveName, "archive-name", "worker", "Batch archive name")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if !b.shared() {
		return errNoSharedBackend
	}

	p, err := newPipeline(ctx, b, pipelineOptions{
		classify:    true,
		load:        !workerNoLoad,
		archiveName: workerArchiveName,
	})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	consumer := "worker-" + uuid.NewString()[:8]
	queue, err := b.taskQueue(consumer)
	if err != nil {
		return err
	}

	concurrency := workerConcurrency
	if concurrency <= 0 {
		concurrency = cfg.WorkerConcurrency
	}

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      queue,
		Orchestrator:   p.PipelineOrchestrator,
		Logger:         logger.With("consumer", consumer),
		Results:        b.resultStore(),
		NewRegistry:    workerRegistries(),
		Concurrency:    concurrency,
		DequeueTimeout: cfg.WorkerDequeueTimeout,
	})
	if err := w.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		w.Stop()
	case <-waitCh(w):
	}

	if _, err := w.Reconcile(ctx); err != nil {
		logger.Warn("failed to reconcile registries", "error", err)
	}
	return w.Err()
}

func waitCh(w *worker.Worker) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		w.Wait()
		close(ch)
	}()
	return ch
}

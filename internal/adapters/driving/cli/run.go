package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	memqueue "github.com/custodia-labs/findingaid/internal/adapters/driven/queue/memory"
	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/services"
	"github.com/custodia-labs/findingaid/internal/worker"
)

var errFilesFailed = errors.New("some files failed")

var (
	runNoLoad      bool
	runConcurrency int
	runArchiveName string
)

var runCmd = &cobra.Command{
	Use:   "run <xml-dir> [file.xml...]",
	Short: "Run the whole pipeline over a directory of finding aids",
	Long: `Converts every XML file in the directory (or only the named files), seeds
the known-entity registry from all of them, then classifies, enriches,
writes and loads each file on a pool of workers. A file that fails is
reported and the others continue; an authentication failure stops the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runNoLoad, "no-load", false, "Skip loading outputs into Neo4j")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Files processed in parallel (default: WORKER_CONCURRENCY)")
	runCmd.Flags().StringVar(&runArchiveName, "archive-name", "", "Batch archive name (default: directory name)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := services.ListInputs(args[0], args[1:])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Printf("No XML files in %s\n", args[0])
		return nil
	}

	concurrency := runConcurrency
	if concurrency <= 0 {
		concurrency = cfg.WorkerConcurrency
	}
	archiveName := runArchiveName
	if archiveName == "" {
		archiveName = filepath.Base(filepath.Clean(args[0]))
	}

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := newPipeline(ctx, b, pipelineOptions{
		classify:    true,
		load:        !runNoLoad,
		archiveName: archiveName,
	})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	runID := uuid.NewString()
	results := b.resultStore()
	summary := &services.RunSummary{}

	prepared, err := p.Prepare(ctx, paths)
	if err != nil {
		return err
	}

	var tasks []*domain.Task
	for _, r := range prepared {
		if !r.Success {
			summary.Add(r)
			if err := results.Save(ctx, runID, r); err != nil {
				logger.Warn("failed to save result", "path", r.Path, "error", err)
			}
			continue
		}
		task := domain.NewProcessFileTask(runID, r.OutputPath)
		task.MaxAttempts = 1
		tasks = append(tasks, task)
	}

	queue := memqueue.NewQueue()
	defer queue.Close()
	if err := queue.EnqueueBatch(ctx, tasks); err != nil {
		return err
	}

	logger.Info("run started", "run_id", runID, "files", len(paths), "concurrency", concurrency)

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      queue,
		Orchestrator:   p.PipelineOrchestrator,
		Logger:         logger,
		Results:        results,
		Summary:        summary,
		NewRegistry:    workerRegistries(),
		Concurrency:    concurrency,
		DequeueTimeout: 1,
		ExitWhenIdle:   true,
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	w.Wait()

	if _, err := w.Reconcile(ctx); err != nil {
		logger.Warn("failed to reconcile registries", "error", err)
	}

	for _, r := range summary.AddMissing(taskPaths(tasks), unprocessedReason(w.Err(), ctx.Err())) {
		if err := results.Save(context.WithoutCancel(ctx), runID, r); err != nil {
			logger.Warn("failed to save result", "path", r.Path, "error", err)
		}
	}

	printSummary(cmd, runID, summary.Results)

	if err := w.Err(); err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed := summary.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(paths), errFilesFailed)
	}
	return nil
}

func taskPaths(tasks []*domain.Task) []string {
	paths := make([]string, len(tasks))
	for i, t := range tasks {
		paths[i] = t.Path()
	}
	return paths
}

// unprocessedReason explains why a queued file never ran.
func unprocessedReason(fatal, ctxErr error) string {
	switch {
	case fatal != nil:
		return "not processed: run aborted: " + fatal.Error()
	case ctxErr != nil:
		return "not processed: " + ctxErr.Error()
	}
	return "not processed"
}

func printResult(cmd *cobra.Command, r *domain.FileResult) {
	if !r.Success {
		cmd.Printf("  FAIL %s [%s] %s\n", r.Path, r.Stage, r.Error)
		return
	}
	cmd.Printf("  OK   %s -> %s (%d documents, %d terms, %d classified, %d loaded, %.1fs)\n",
		r.Path, r.OutputPath,
		r.Stats.Documents, r.Stats.IndexTerms, r.Stats.TermsClassified, r.Stats.DocumentsLoaded,
		r.Duration,
	)
}

func printSummary(cmd *cobra.Command, runID string, results []*domain.FileResult) {
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	cmd.Printf("Run %s: %d succeeded, %d failed\n", runID, ok, len(results)-ok)
	for _, r := range results {
		printResult(cmd, r)
	}
}

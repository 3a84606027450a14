package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/services"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <xml-dir> [file.xml...]",
	Short: "Convert and seed finding aids, then queue them for workers",
	Long: `Converts the XML files, seeds the shared known-entity registry from all
of them, and queues one task per ingestion JSON on the shared queue.
Requires REDIS_URL or DATABASE_URL. Prints the run ID for the status command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if !b.shared() {
		return errNoSharedBackend
	}

	paths, err := services.ListInputs(args[0], args[1:])
	if err != nil {
		return err
	}

	p, err := newPipeline(ctx, b, pipelineOptions{})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	queue, err := b.taskQueue("enqueue-" + uuid.NewString()[:8])
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	results := b.resultStore()

	prepared, err := p.Prepare(ctx, paths)
	if err != nil {
		return err
	}

	var tasks []*domain.Task
	for _, r := range prepared {
		if !r.Success {
			printResult(cmd, r)
			if err := results.Save(ctx, runID, r); err != nil {
				logger.Warn("failed to save result", "path", r.Path, "error", err)
			}
			continue
		}
		tasks = append(tasks, domain.NewProcessFileTask(runID, r.OutputPath))
	}

	if err := queue.EnqueueBatch(ctx, tasks); err != nil {
		return err
	}

	cmd.Printf("Queued %d of %d files\n", len(tasks), len(paths))
	cmd.Printf("Run ID: %s\n", runID)
	return nil
}

package cli

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the file results of a run and the queue statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()
	if !b.shared() {
		return errNoSharedBackend
	}

	results, err := b.resultStore().List(ctx, args[0])
	if err != nil {
		return err
	}
	printSummary(cmd, args[0], results)

	queue, err := b.taskQueue("status")
	if err != nil {
		return err
	}
	stats, err := queue.Stats(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Queue: %d pending, %d processing, %d completed, %d failed\n",
		stats.PendingCount, stats.ProcessingCount, stats.CompletedCount, stats.FailedCount)
	return nil
}

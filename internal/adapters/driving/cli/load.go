package cli

import (
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Load an output JSON file into Neo4j",
	Long: `Upserts every document of an output JSON file into Neo4j. Every write is
a MERGE keyed by identifier, so loading the same file twice creates no
duplicate nodes or relationships.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := newPipeline(ctx, &backends{}, pipelineOptions{load: true})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	stats, err := p.LoadFile(ctx, args[0])
	if stats != nil {
		cmd.Printf("Loaded %d documents (%d skipped, %d failed)\n", stats.Loaded, stats.Skipped, stats.Failed)
	}
	return err
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/findingaid/internal/core/services"
)

var (
	classifyNoLoad      bool
	classifyArchiveName string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <in.json|in.xml> [out.json]",
	Short: "Classify index terms and write the output JSON",
	Long: `Seeds the known-entity registry from the file's names, classifies the
remaining index terms, assigns URIs, optionally enriches people from the
authority file, writes the output JSON and loads it into Neo4j.
The output defaults to <data-dir>/<name>_classified.json.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyNoLoad, "no-load", false, "Skip loading the output into Neo4j")
	classifyCmd.Flags().StringVar(&classifyArchiveName, "archive-name", "", "Batch archive name (default: input file name)")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	archiveName := classifyArchiveName
	if archiveName == "" {
		archiveName = baseName(args[0])
	}

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := newPipeline(ctx, b, pipelineOptions{
		classify:    true,
		load:        !classifyNoLoad,
		archiveName: archiveName,
	})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	opts := services.ProcessOptions{SkipLoad: classifyNoLoad}
	if len(args) > 1 {
		opts.OutputPath = args[1]
	}

	result, err := p.Process(ctx, args[0], opts)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s failed: %s", result.Stage, result.Error)
	}

	printResult(cmd, result)
	return nil
}

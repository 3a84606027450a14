package cli

import (
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.xml> [out.json]",
	Short: "Convert a finding-aid XML file into ingestion JSON",
	Long: `Reads every <document> of a finding-aid XML file, deduplicates its index
terms and writes the ingestion JSON. The output defaults to
<data-dir>/<name>.json.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := newPipeline(ctx, &backends{}, pipelineOptions{})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	dest := p.IngestPath(args[0])
	if len(args) > 1 {
		dest = args[1]
	}

	corpus, err := p.ConvertFile(ctx, args[0], dest)
	if err != nil {
		return err
	}

	cmd.Printf("Converted %d documents to %s\n", len(corpus.Documents), dest)
	return nil
}

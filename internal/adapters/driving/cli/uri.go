package cli

import (
	"github.com/spf13/cobra"
)

var uriCmd = &cobra.Command{
	Use:   "uri <file.json>",
	Short: "Recompute the URIs of an output JSON file in place",
	Args:  cobra.ExactArgs(1),
	RunE:  runURI,
}

func init() {
	rootCmd.AddCommand(uriCmd)
}

func runURI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := newPipeline(ctx, &backends{}, pipelineOptions{})
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	n, err := p.AssignURIsFile(ctx, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Assigned URIs in %d documents of %s\n", n, args[0])
	return nil
}

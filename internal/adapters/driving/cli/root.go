// Package cli implements the findingaid command line.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/findingaid/internal/config"
)

var (
	version = "dev"

	envFile string
	verbose bool
	dataDir string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "findingaid",
	Short: "Finding-aid graph pipeline",
	Long: `findingaid converts finding-aid XML into JSON documents, classifies
their index terms, assigns stable URIs, enriches people with authority
identifiers and loads the result into a Neo4j graph.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Environment file to load (default: .env if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for intermediate and output JSON (overrides DATA_DIR)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// setup loads configuration and installs the process logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		loaded.DataDir = dataDir
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger = newLogger(cfg, verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}

func newLogger(c *config.Config, debug bool, w io.Writer) *slog.Logger {
	level := c.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

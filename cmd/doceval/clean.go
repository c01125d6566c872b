package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/cleaner"
)

func init() {
	rootCmd.AddCommand(cleanCmd)
}

// cleanCmd normalizes markdown documents through the LLM
var cleanCmd = &cobra.Command{
	Use:   "clean <source-dir> [target-dir]",
	Short: "Normalize markdown documents through the LLM",
	Long: `Rewrite each markdown document in the source directory through the
LLM to strip boilerplate and normalize formatting before evaluation.

When no target directory is given, documents are cleaned in place.
Empty LLM responses are retried once; documents that still come back
empty keep their original content.

Examples:
  # Clean documents in place
  doceval clean ./docs

  # Write cleaned documents to a separate directory
  doceval clean ./raw-docs ./docs`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	source := args[0]
	target := source
	if len(args) == 2 {
		target = args[1]
	}

	client, _, err := buildLLMClient(cfg, logger.Underlying())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := cleaner.New(client, logger.Underlying()).Clean(ctx, source, target)
	if err != nil {
		return err
	}

	cmd.Printf("Cleaned %d documents (%d skipped, %d empty retries, %d errors)\n",
		stats.Cleaned, stats.Skipped, stats.EmptyRetries, stats.Errors)
	return nil
}

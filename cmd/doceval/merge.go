package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/report"
)

var mergeOutputDir string

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeOutputDir, "output-dir", "", "directory holding per-section reports (default from config)")
}

// mergeCmd combines per-section reports into one CSV
var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge per-section reports into a single CSV",
	Long: `Merge the per-section evaluation reports in the output directory
into one merged_evaluation.csv, ordered by section number.

Examples:
  # Merge reports in the configured output directory
  doceval merge

  # Merge reports from a specific directory
  doceval merge --output-dir ./eval-results`,
	RunE: runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	dir := mergeOutputDir
	if dir == "" {
		dir = cfg.Paths.OutputDir
	}

	files, err := report.SectionFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to list section reports: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no section reports found in %s", dir)
	}

	merged := filepath.Join(dir, report.MergedFileName)
	if err := report.Merge(files, merged, logger.Underlying()); err != nil {
		return fmt.Errorf("failed to merge reports: %w", err)
	}

	cmd.Printf("Merged %d section reports into %s\n", len(files), merged)
	return nil
}

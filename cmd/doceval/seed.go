package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/seed"
)

var (
	seedSections  int
	seedValue     int64
	seedOutputDir string
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedSections, "sections", 3, "number of sample sections to generate")
	seedCmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed (0 uses the clock)")
	seedCmd.Flags().StringVar(&seedOutputDir, "output-dir", "", "directory for sample reports (default from config)")
}

// seedCmd generates sample reports for dashboard demos
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate sample evaluation reports",
	Long: `Generate plausible sample reports so the dashboard has data before
a real evaluation run. Section titles come from the configured question
and document files when present. A directory that already holds reports
is left untouched.

Examples:
  # Generate three sample sections
  doceval seed

  # Generate five reproducible sections
  doceval seed --sections 5 --seed 42`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	dir := seedOutputDir
	if dir == "" {
		dir = cfg.Paths.OutputDir
	}

	files, err := seed.Generate(seed.Options{
		OutputDir:       dir,
		Sections:        seedSections,
		Seed:            seedValue,
		QuestionsDir:    cfg.Paths.QuestionsDir,
		DocsDir:         cfg.Paths.DocsDir,
		QuestionPattern: cfg.Paths.QuestionPattern,
		DocPattern:      cfg.Paths.DocPattern,
	}, logger.Underlying())
	if err != nil {
		return err
	}

	if len(files) == 0 {
		cmd.Printf("Evaluation results already exist in %s, nothing to do.\n", dir)
		return nil
	}
	cmd.Printf("Wrote %d sample files to %s\n", len(files), dir)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/llm"
	"github.com/fyrsmithlabs/doceval/internal/logging"
	"github.com/fyrsmithlabs/doceval/internal/match"
	"github.com/fyrsmithlabs/doceval/internal/pipeline"
	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/prompt"
	"github.com/fyrsmithlabs/doceval/internal/redact"
)

var (
	sectionRange         string
	generateRequirements bool
	runOutputDir         string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&sectionRange, "sections", "", "section range to evaluate, e.g. \"1-6\" or \"3\"")
	runCmd.Flags().BoolVar(&generateRequirements, "generate-requirements", false, "generate requirements for sections without questions")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for CSV reports (default from config)")
}

// runCmd evaluates documentation sections and writes CSV reports
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate documentation sections and write CSV reports",
	Long: `Evaluate documentation sections against their requirement questions.

Each section is scored on coherence, quality, capture rate, and
hallucination by the configured LLM. Per-section CSV reports and a
merged report are written to the output directory.

Examples:
  # Evaluate the configured section range
  doceval run

  # Evaluate sections 2 through 4 only
  doceval run --sections 2-4

  # Generate requirements for sections without question files
  doceval run --generate-requirements

  # Write reports somewhere else
  doceval run --output-dir ./eval-results`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cmd.Flags().Changed("generate-requirements") {
		cfg.Evaluation.GenerateRequirements = generateRequirements
	}

	var sections *config.SectionsConfig
	if sectionRange != "" {
		parsed, err := config.ParseSectionRange(sectionRange)
		if err != nil {
			return fmt.Errorf("invalid --sections: %w", err)
		}
		sections = &parsed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matcher, eval, _, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	nc := connectNATS(ctx, cfg, logger)
	if nc != nil {
		defer nc.Close()
	}
	registry := progress.NewRegistry(nc, logger.Underlying())

	runner := pipeline.NewRunner(cfg, matcher, eval, registry, logger.Underlying())
	result, err := runner.Run(ctx, pipeline.RunOptions{
		Sections:  sections,
		OutputDir: runOutputDir,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Evaluated %d sections (%d skipped, %d failed)\n",
		result.Evaluated, result.Skipped, result.Errors)
	if result.Summary.Sections > 0 {
		cmd.Printf("Overall score: %.2f (%s)\n", result.Summary.Overall, result.Summary.Band)
	}
	for _, f := range result.Files {
		cmd.Printf("  %s\n", f)
	}
	return nil
}

// buildPipeline wires the evaluation dependencies shared by run and mcp.
func buildPipeline(cfg *config.Config, logger *logging.Logger) (match.Matcher, evaluator.Evaluator, *redact.Redactor, error) {
	zl := logger.Underlying()

	client, redactor, err := buildLLMClient(cfg, zl)
	if err != nil {
		return nil, nil, nil, err
	}

	library, err := prompt.Load(cfg.Paths.PromptsFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	matcher, err := match.New(cfg.Matcher, zl)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize matcher: %w", err)
	}

	return matcher, evaluator.NewLLMEvaluator(client, library, zl), redactor, nil
}

// buildLLMClient constructs the redacting, metered LLM client.
func buildLLMClient(cfg *config.Config, zl *zap.Logger) (llm.Client, *redact.Redactor, error) {
	redactor, err := redact.New(cfg.Redaction, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redactor: %w", err)
	}

	client, err := llm.New(cfg.LLM,
		llm.WithLogger(zl),
		llm.WithRedactor(redactor),
		llm.WithMetrics(llm.NewMetrics()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	return client, redactor, nil
}

// connectNATS connects to NATS when enabled. Failures are tolerated: runs
// proceed without live progress events.
func connectNATS(ctx context.Context, cfg *config.Config, logger *logging.Logger) *nats.Conn {
	if !cfg.NATS.Enabled {
		return nil
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		logger.Warn(ctx, "NATS connection failed, live progress disabled",
			zap.String("url", cfg.NATS.URL), zap.Error(err))
		return nil
	}
	return nc
}

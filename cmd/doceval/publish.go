package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/publish"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

var (
	prNumber   int
	publishDry bool
	publishDir string
)

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().IntVar(&prNumber, "pr", 0, "pull request number to comment on")
	publishCmd.Flags().BoolVar(&publishDry, "dry-run", false, "print the comment instead of posting it")
	publishCmd.Flags().StringVar(&publishDir, "output-dir", "", "directory holding evaluation reports (default from config)")
}

// publishCmd posts the evaluation summary as a PR comment
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Post the evaluation summary as a pull request comment",
	Long: `Render the evaluation results as a markdown comment and post it to
a GitHub pull request. The repository is taken from config or detected
from the local git remote.

Examples:
  # Preview the comment without posting
  doceval publish --dry-run

  # Comment on pull request 128
  doceval publish --pr 128`,
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	zl := logger.Underlying()

	dir := publishDir
	if dir == "" {
		dir = cfg.Paths.OutputDir
	}

	results, err := report.Load(dir, zl)
	if err != nil {
		return fmt.Errorf("failed to load reports: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no evaluation results found in %s", dir)
	}

	meta, err := report.LoadRunMeta(dir)
	if err != nil {
		return fmt.Errorf("failed to load run metadata: %w", err)
	}

	body := publish.RenderComment(report.Summarize(results), results, meta)
	if publishDry {
		cmd.Println(body)
		return nil
	}

	if prNumber <= 0 {
		return fmt.Errorf("--pr is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gh, err := publish.NewGitHubClient(ctx, cfg.GitHub.Token)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	owner, repo, err := publish.ResolveRepo(cfg.GitHub, ".")
	if err != nil {
		return fmt.Errorf("failed to resolve repository: %w", err)
	}

	url, err := publish.New(gh, zl).Publish(ctx, publish.Request{
		Owner:    owner,
		Repo:     repo,
		PRNumber: prNumber,
	}, body)
	if err != nil {
		return err
	}

	cmd.Printf("Posted evaluation comment: %s\n", url)
	return nil
}

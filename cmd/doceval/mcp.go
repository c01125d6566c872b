// Package main implements the MCP stdio serving command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/doceval/internal/mcp"
	"github.com/fyrsmithlabs/doceval/internal/progress"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpCmd serves evaluation tools over the Model Context Protocol
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve evaluation tools over MCP stdio",
	Long: `Run doceval as a Model Context Protocol server on stdio.

The server exposes evaluate_document, report_summary, and runs_list
tools so agents can evaluate documentation and inspect results. Logs
go to stderr; stdout carries the protocol.

Examples:
  # Serve MCP on stdio
  doceval mcp

  # Serve with a specific config file
  doceval mcp --config ./doceval.yaml`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	matcher, eval, redactor, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc := connectNATS(ctx, cfg, logger)
	if nc != nil {
		defer nc.Close()
	}
	registry := progress.NewRegistry(nc, logger.Underlying())

	srv, err := mcp.NewServer(cfg, matcher, eval, registry, redactor, logger.Underlying())
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	return srv.Run(ctx)
}

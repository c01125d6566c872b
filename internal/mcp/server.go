// Package mcp exposes documentation evaluation over the Model Context
// Protocol so coding agents can score documents and read reports in place.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls internal packages directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/match"
	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/redact"
)

const (
	serverName    = "doceval"
	serverVersion = "1.0.0"
)

// Server exposes the evaluation pipeline and report store as MCP tools.
type Server struct {
	mcp      *mcp.Server
	cfg      *config.Config
	matcher  match.Matcher
	eval     evaluator.Evaluator
	registry *progress.Registry
	redactor *redact.Redactor
	metrics  *Metrics
	logger   *zap.Logger
}

// NewServer creates an MCP server over the given evaluation services.
func NewServer(
	cfg *config.Config,
	matcher match.Matcher,
	eval evaluator.Evaluator,
	registry *progress.Registry,
	redactor *redact.Redactor,
	logger *zap.Logger,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if eval == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("run registry is required")
	}
	if redactor == nil {
		return nil, fmt.Errorf("redactor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		cfg:      cfg,
		matcher:  matcher,
		eval:     eval,
		registry: registry,
		redactor: redactor,
		metrics:  NewMetrics(logger),
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/docs"
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerEvaluateTools()
	s.registerReportTools()
	s.registerRunTools()
}

// ===== EVALUATION TOOLS =====

type evaluateDocumentInput struct {
	QuestionsFile string `json:"questions_file" jsonschema:"required,Path to the YAML requirement questions file"`
	DocsFile      string `json:"docs_file" jsonschema:"required,Path to the markdown document to evaluate"`
}

type evaluateDocumentOutput struct {
	Sections []map[string]interface{} `json:"sections" jsonschema:"Per-section metric scores and comments"`
	Count    int                      `json:"count" jsonschema:"Number of sections evaluated"`
	Summary  report.Summary           `json:"summary" jsonschema:"Metric means and overall band"`
}

func (s *Server) registerEvaluateTools() {
	// evaluate_document
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "evaluate_document",
		Description: "Evaluate a markdown document against YAML requirement questions and return per-section scores",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args evaluateDocumentInput) (*mcp.CallToolResult, evaluateDocumentOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "evaluate_document")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "evaluate_document")
			s.metrics.RecordInvocation(ctx, "evaluate_document", time.Since(start), toolErr)
		}()

		output, err := s.evaluateDocument(ctx, args)
		if err != nil {
			toolErr = err
			return nil, evaluateDocumentOutput{}, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Evaluated %d sections, overall %.2f (%s)",
					output.Count, output.Summary.Overall, output.Summary.Band)},
			},
		}, output, nil
	})
}

func (s *Server) evaluateDocument(ctx context.Context, args evaluateDocumentInput) (evaluateDocumentOutput, error) {
	if args.QuestionsFile == "" {
		return evaluateDocumentOutput{}, fmt.Errorf("questions_file is required")
	}
	if args.DocsFile == "" {
		return evaluateDocumentOutput{}, fmt.Errorf("docs_file is required")
	}

	questions, err := docs.LoadQuestions(args.QuestionsFile)
	if err != nil {
		return evaluateDocumentOutput{}, fmt.Errorf("loading questions: %w", err)
	}
	content, err := os.ReadFile(args.DocsFile)
	if err != nil {
		return evaluateDocumentOutput{}, fmt.Errorf("reading document: %w", err)
	}

	pairs, err := s.matcher.Match(ctx, questions, docs.ExtractSections(string(content)))
	if err != nil {
		return evaluateDocumentOutput{}, fmt.Errorf("matching sections: %w", err)
	}

	evals := make([]*evaluator.SectionEvaluation, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair.Requirements) == 0 && s.cfg.Evaluation.GenerateRequirements {
			reqs, err := s.eval.GenerateRequirements(ctx, pair)
			if err != nil {
				s.logger.Warn("requirements generation failed",
					zap.String("section_id", pair.ID), zap.Error(err))
			} else {
				pair.Requirements = reqs
			}
		}

		ev, err := s.eval.EvaluateSection(ctx, pair)
		if err != nil {
			s.logger.Warn("section evaluation skipped",
				zap.String("section_id", pair.ID), zap.Error(err))
			continue
		}
		evals = append(evals, ev)
	}

	summary := report.Summarize(report.ResultsFromEvaluations(evals))

	sections := make([]map[string]interface{}, 0, len(evals))
	for _, ev := range evals {
		scores := make(map[string]interface{}, len(ev.Scores))
		for metric, sc := range ev.Scores {
			comment, _ := s.redactor.Redact(sc.Comment)
			scores[metric] = map[string]interface{}{
				"score":   sc.Score,
				"comment": comment,
			}
		}
		sections = append(sections, map[string]interface{}{
			"section_id": ev.SectionID,
			"title":      ev.Title,
			"average":    ev.Average,
			"scores":     scores,
		})
	}

	return evaluateDocumentOutput{
		Sections: sections,
		Count:    len(sections),
		Summary:  summary,
	}, nil
}

// ===== REPORT TOOLS =====

type reportSummaryInput struct {
	OutputDir string `json:"output_dir,omitempty" jsonschema:"Report directory (defaults to the configured output dir)"`
}

type reportSummaryOutput struct {
	OutputDir string         `json:"output_dir" jsonschema:"Report directory that was read"`
	RunID     string         `json:"run_id,omitempty" jsonschema:"ID of the run that wrote the reports"`
	Summary   report.Summary `json:"summary" jsonschema:"Metric means and overall band"`
}

func (s *Server) registerReportTools() {
	// report_summary
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "report_summary",
		Description: "Summarize the evaluation reports in an output directory",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args reportSummaryInput) (*mcp.CallToolResult, reportSummaryOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "report_summary")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "report_summary")
			s.metrics.RecordInvocation(ctx, "report_summary", time.Since(start), toolErr)
		}()

		output, err := s.reportSummary(args)
		if err != nil {
			toolErr = err
			return nil, reportSummaryOutput{}, err
		}

		text := fmt.Sprintf("Summary over %d sections: overall %.2f (%s)",
			output.Summary.Sections, output.Summary.Overall, output.Summary.Band)
		if output.Summary.Sections == 0 {
			text = fmt.Sprintf("No evaluation results found in %s", output.OutputDir)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, output, nil
	})
}

func (s *Server) reportSummary(args reportSummaryInput) (reportSummaryOutput, error) {
	dir := args.OutputDir
	if dir == "" {
		dir = s.cfg.Paths.OutputDir
	}

	results, err := report.Load(dir, s.logger)
	if err != nil {
		return reportSummaryOutput{}, fmt.Errorf("loading reports: %w", err)
	}

	output := reportSummaryOutput{
		OutputDir: dir,
		Summary:   report.Summarize(results),
	}
	if meta, err := report.LoadRunMeta(dir); err == nil && meta != nil {
		output.RunID = meta.RunID
	}

	return output, nil
}

// ===== RUN TOOLS =====

type runsListInput struct{}

type runsListOutput struct {
	Runs  []progress.RunView `json:"runs" jsonschema:"Known runs, newest first"`
	Count int                `json:"count" jsonschema:"Number of runs"`
}

func (s *Server) registerRunTools() {
	// runs_list
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "runs_list",
		Description: "List known evaluation runs with status and progress",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args runsListInput) (*mcp.CallToolResult, runsListOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "runs_list")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "runs_list")
			s.metrics.RecordInvocation(ctx, "runs_list", time.Since(start), toolErr)
		}()

		output := s.runsList()

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d runs", output.Count)},
			},
		}, output, nil
	})
}

func (s *Server) runsList() runsListOutput {
	views := s.registry.List()
	for i := range views {
		views[i].Message, _ = s.redactor.Redact(views[i].Message)
		views[i].Error, _ = s.redactor.Redact(views[i].Error)
	}
	return runsListOutput{Runs: views, Count: len(views)}
}

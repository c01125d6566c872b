// Package pipeline runs complete evaluations: it discovers question and
// document files per section number, pairs and scores their sections, and
// writes the CSV reports and run metadata.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/docs"
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/gitinfo"
	"github.com/fyrsmithlabs/doceval/internal/match"
	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

// RunOptions override parts of the configured run.
type RunOptions struct {
	Sections  *config.SectionsConfig // nil keeps the configured range
	OutputDir string                 // empty keeps the configured directory
}

// RunResult is the outcome of one evaluation run. Section numbers whose
// files could not be processed are counted, not fatal: the run always
// produces whatever reports it can.
type RunResult struct {
	RunID     string
	Sections  []*evaluator.SectionEvaluation
	Files     []string // per-section reports written
	Evaluated int      // section numbers evaluated
	Skipped   int      // section numbers with missing files
	Errors    int      // section numbers that failed
	Summary   report.Summary
	Meta      *report.RunMeta
}

// Runner wires discovery, matching, evaluation, and reporting together.
type Runner struct {
	cfg      *config.Config
	matcher  match.Matcher
	eval     evaluator.Evaluator
	registry *progress.Registry
	logger   *zap.Logger
}

// NewRunner builds a runner over the given collaborators.
func NewRunner(cfg *config.Config, matcher match.Matcher, eval evaluator.Evaluator, registry *progress.Registry, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, matcher: matcher, eval: eval, registry: registry, logger: logger}
}

// sectionOutcome is the result of one section number's question/document
// pair.
type sectionOutcome struct {
	number int
	evals  []*evaluator.SectionEvaluation
	file   string
	err    error
}

// Run evaluates every section number in the range. Section files are
// processed concurrently, bounded by evaluation.max_workers; a section
// whose files are missing or unreadable is skipped or counted as an error
// while the rest of the run continues.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	sections := r.cfg.Sections
	if opts.Sections != nil {
		sections = *opts.Sections
	}
	outputDir := r.cfg.Paths.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}

	runID := r.registry.Create()
	started := time.Now()
	if err := r.registry.Started(runID); err != nil {
		r.logger.Warn("publishing run start failed", zap.Error(err))
	}
	r.logger.Info("evaluation run started",
		zap.String("run_id", runID),
		zap.Int("start", sections.Start),
		zap.Int("end", sections.End),
		zap.String("output_dir", outputDir))

	found, missing := docs.Discover(
		r.cfg.Paths.QuestionsDir, r.cfg.Paths.DocsDir,
		r.cfg.Paths.QuestionPattern, r.cfg.Paths.DocPattern,
		sections.Start, sections.End)
	for _, m := range missing {
		r.logger.Warn("skipping section, files missing",
			zap.Int("section", m.Number),
			zap.String("questions", m.Questions),
			zap.String("document", m.Document))
		r.logEvent(runID, "warn", fmt.Sprintf("skipping section %d: files missing", m.Number))
	}

	outcomes := make([]sectionOutcome, len(found))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Evaluation.MaxWorkers)
	for i, sf := range found {
		g.Go(func() error {
			outcomes[i] = r.evaluateFile(gctx, sf, outputDir)

			n := int(done.Add(1))
			msg := fmt.Sprintf("section %d done (%d/%d)", sf.Number, n, len(found))
			if err := r.registry.SectionDone(runID, n*100/len(found), msg); err != nil {
				r.logger.Warn("publishing progress failed", zap.Error(err))
			}
			return nil
		})
	}
	// Goroutines never return errors; per-section failures live in their
	// outcome slots.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if regErr := r.registry.Error(runID, err); regErr != nil {
			r.logger.Warn("publishing run failure failed", zap.Error(regErr))
		}
		return nil, fmt.Errorf("evaluation run canceled: %w", err)
	}

	result := &RunResult{RunID: runID, Skipped: len(missing)}
	for _, o := range outcomes {
		if o.err != nil {
			r.logger.Error("section evaluation failed", zap.Int("section", o.number), zap.Error(o.err))
			r.logEvent(runID, "error", fmt.Sprintf("section %d failed: %v", o.number, o.err))
			result.Errors++
			continue
		}
		result.Evaluated++
		result.Sections = append(result.Sections, o.evals...)
		result.Files = append(result.Files, o.file)
	}

	if len(result.Files) > 0 {
		merged := filepath.Join(outputDir, report.MergedFileName)
		if err := report.Merge(result.Files, merged, r.logger); err != nil {
			r.logger.Error("merging reports failed", zap.Error(err))
			result.Errors++
		}
	}

	result.Summary = report.Summarize(report.ResultsFromEvaluations(result.Sections))

	meta := &report.RunMeta{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Evaluated:  result.Evaluated,
		Skipped:    result.Skipped,
		Errors:     result.Errors,
		Git:        gitinfo.Describe(r.cfg.Paths.DocsDir),
		Config:     *r.cfg,
	}
	if err := report.WriteRunMeta(outputDir, meta); err != nil {
		r.logger.Error("writing run metadata failed", zap.Error(err))
	}
	result.Meta = meta

	if err := r.registry.Complete(runID, result.Summary); err != nil {
		r.logger.Warn("publishing run completion failed", zap.Error(err))
	}
	r.logger.Info("evaluation run finished",
		zap.String("run_id", runID),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
		zap.Float64("overall", result.Summary.Overall))

	return result, nil
}

// evaluateFile processes one section number: load, pair, score every
// matched section, write the per-section CSV.
func (r *Runner) evaluateFile(ctx context.Context, sf docs.SectionFiles, outputDir string) sectionOutcome {
	out := sectionOutcome{number: sf.Number}

	questions, err := docs.LoadQuestions(sf.Questions)
	if err != nil {
		out.err = fmt.Errorf("loading questions: %w", err)
		return out
	}
	content, err := os.ReadFile(sf.Document)
	if err != nil {
		out.err = fmt.Errorf("reading document: %w", err)
		return out
	}

	pairs, err := r.matcher.Match(ctx, questions, docs.ExtractSections(string(content)))
	if err != nil {
		out.err = fmt.Errorf("matching sections: %w", err)
		return out
	}
	if len(pairs) == 0 {
		r.logger.Warn("no questions matched the document",
			zap.Int("section", sf.Number), zap.String("document", sf.Document))
	}

	evals := make([]*evaluator.SectionEvaluation, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair.Requirements) == 0 && r.cfg.Evaluation.GenerateRequirements {
			reqs, err := r.eval.GenerateRequirements(ctx, pair)
			if err != nil {
				r.logger.Warn("requirements generation failed",
					zap.String("section_id", pair.ID), zap.Error(err))
			} else {
				pair.Requirements = reqs
			}
		}

		ev, err := r.eval.EvaluateSection(ctx, pair)
		if err != nil {
			r.logger.Warn("section evaluation skipped",
				zap.String("section_id", pair.ID), zap.Error(err))
			continue
		}
		evals = append(evals, ev)

		r.logger.Debug("section evaluated",
			zap.Int("section", sf.Number),
			zap.String("section_id", ev.SectionID),
			zap.Float64("average", ev.Average))
	}

	path := filepath.Join(outputDir, report.SectionFileName(sf.Number))
	if err := report.WriteSections(path, evals); err != nil {
		out.err = fmt.Errorf("writing report: %w", err)
		return out
	}

	out.evals = evals
	out.file = path
	return out
}

func (r *Runner) logEvent(runID, level, message string) {
	if err := r.registry.Log(runID, level, message); err != nil {
		r.logger.Debug("publishing log event failed", zap.Error(err))
	}
}

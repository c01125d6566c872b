// Package evaluator scores document sections against their requirements by
// fanning the four evaluation prompts out to an LLM and parsing the replies.
package evaluator

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/doceval/internal/docs"
	"github.com/fyrsmithlabs/doceval/internal/llm"
	"github.com/fyrsmithlabs/doceval/internal/prompt"
)

// MetricScore is one metric's parsed result for a section.
type MetricScore struct {
	Metric  string  `json:"metric"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// SectionEvaluation is the complete result for one section.
type SectionEvaluation struct {
	SectionID    string                 `json:"section_id"`
	Title        string                 `json:"title"`
	Content      string                 `json:"content"`
	Requirements []string               `json:"requirements"`
	Scores       map[string]MetricScore `json:"scores"`
	Average      float64                `json:"average"`
}

// Evaluator scores a section on every metric and can propose requirements
// for sections whose question carried none.
type Evaluator interface {
	EvaluateSection(ctx context.Context, section docs.Section) (*SectionEvaluation, error)
	GenerateRequirements(ctx context.Context, section docs.Section) ([]string, error)
}

// LLMEvaluator evaluates sections through an LLM client.
type LLMEvaluator struct {
	client  llm.Client
	prompts *prompt.Library
	logger  *zap.Logger
}

var _ Evaluator = (*LLMEvaluator)(nil)

// NewLLMEvaluator builds an evaluator over client using the given prompt
// library.
func NewLLMEvaluator(client llm.Client, library *prompt.Library, logger *zap.Logger) *LLMEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMEvaluator{client: client, prompts: library, logger: logger}
}

// EvaluateSection runs the four metric prompts in parallel. The calls are
// independent: each goroutine writes only its own result slot, so no ordering
// or locking is needed. A call that still fails after the client's retries
// records score 0.0 with the error as comment; the section always completes.
func (e *LLMEvaluator) EvaluateSection(ctx context.Context, section docs.Section) (*SectionEvaluation, error) {
	metrics := prompt.Metrics()
	results := make([]MetricScore, len(metrics))

	var g errgroup.Group
	for i, metric := range metrics {
		g.Go(func() error {
			results[i] = e.evaluateMetric(ctx, metric, section)
			return nil
		})
	}
	// Goroutines never return errors; failures live in their result slots.
	_ = g.Wait()

	scores := make(map[string]MetricScore, len(results))
	for _, r := range results {
		scores[r.Metric] = r
	}

	return &SectionEvaluation{
		SectionID:    section.ID,
		Title:        section.Title,
		Content:      section.Content,
		Requirements: section.Requirements,
		Scores:       scores,
		Average:      AverageScore(scores),
	}, nil
}

func (e *LLMEvaluator) evaluateMetric(ctx context.Context, metric string, section docs.Section) MetricScore {
	rendered, err := e.prompts.Render(metric, section.Content, section.Requirements)
	if err != nil {
		return MetricScore{
			Metric:  metric,
			Comment: fmt.Sprintf("Error rendering prompt: %v", err),
		}
	}

	resp, err := e.client.Complete(ctx, llm.Request{Prompt: rendered})
	if err != nil {
		e.logger.Warn("metric evaluation failed",
			zap.String("section_id", section.ID),
			zap.String("metric", metric),
			zap.Error(err))
		return MetricScore{
			Metric:  metric,
			Comment: fmt.Sprintf("Error calling LLM: %v", err),
		}
	}

	score, comment := ParseScore(resp.Text)
	return MetricScore{Metric: metric, Score: score, Comment: comment}
}

// GenerateRequirements asks the LLM for 3-5 requirements for a section that
// has none.
func (e *LLMEvaluator) GenerateRequirements(ctx context.Context, section docs.Section) ([]string, error) {
	rendered, err := prompt.RenderRequirements(section.Title)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Complete(ctx, llm.Request{Prompt: rendered})
	if err != nil {
		return nil, fmt.Errorf("generating requirements for %s: %w", section.ID, err)
	}

	return ParseList(resp.Text), nil
}

// AverageScore returns the mean over the present metric scores, 0.0 when
// none are present.
func AverageScore(scores map[string]MetricScore) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

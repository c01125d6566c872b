// Package match pairs requirement questions with markdown sections, either
// by fuzzy title matching or by embedding similarity.
package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/docs"
)

// Matcher pairs questions with the markdown sections they evaluate.
type Matcher interface {
	Match(ctx context.Context, questions []docs.Question, sections []docs.MarkdownSection) ([]docs.Section, error)
}

// New builds a Matcher from configuration. Fuzzy matching needs nothing;
// semantic matching requires an embeddings endpoint and model.
func New(cfg config.MatcherConfig, logger *zap.Logger) (Matcher, error) {
	switch cfg.Mode {
	case "", "fuzzy":
		return FuzzyMatcher{}, nil
	case "semantic":
		return NewSemanticMatcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown matcher mode %q", cfg.Mode)
	}
}

// FuzzyMatcher matches titles exactly, then by case-insensitive substring in
// either direction.
type FuzzyMatcher struct{}

var _ Matcher = FuzzyMatcher{}

// Match pairs questions and sections by title.
func (FuzzyMatcher) Match(_ context.Context, questions []docs.Question, sections []docs.MarkdownSection) ([]docs.Section, error) {
	return docs.PairByTitle(questions, sections), nil
}

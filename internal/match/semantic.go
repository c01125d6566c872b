package match

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/docs"
)

// SemanticMatcher embeds section titles into an ephemeral in-memory chromem
// collection and pairs each question with the nearest title. Matches below
// the similarity threshold fall back to fuzzy matching for that question.
type SemanticMatcher struct {
	embedder  embeddings.Embedder
	threshold float64
	logger    *zap.Logger
}

var _ Matcher = (*SemanticMatcher)(nil)

// NewSemanticMatcher builds a matcher over an OpenAI-compatible embeddings
// endpoint (OpenAI, TEI, or any server speaking the same API).
func NewSemanticMatcher(cfg config.MatcherConfig, logger *zap.Logger) (*SemanticMatcher, error) {
	if cfg.Embeddings.BaseURL == "" || cfg.Embeddings.Model == "" {
		return nil, fmt.Errorf("semantic matching requires embeddings base_url and model")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := cfg.Embeddings.APIKey.Value()
	if apiKey == "" {
		// langchaingo requires a token even for endpoints that ignore it
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.Embeddings.BaseURL),
		openai.WithEmbeddingModel(cfg.Embeddings.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &SemanticMatcher{
		embedder:  embedder,
		threshold: cfg.Threshold,
		logger:    logger,
	}, nil
}

// Match pairs questions and sections by title similarity. The chromem
// collection lives only for this call.
func (m *SemanticMatcher) Match(ctx context.Context, questions []docs.Question, sections []docs.MarkdownSection) ([]docs.Section, error) {
	if len(sections) == 0 || len(questions) == 0 {
		return nil, nil
	}

	collection, err := m.indexTitles(ctx, sections)
	if err != nil {
		return nil, err
	}

	matched := make([]docs.Section, 0, len(questions))
	for _, q := range questions {
		content, ok := m.nearestContent(ctx, collection, sections, q.Title)
		if !ok {
			content, ok = docs.FindContent(sections, q.Title)
		}
		if !ok || content == "" {
			m.logger.Debug("question skipped, no section matched", zap.String("title", q.Title))
			continue
		}

		var reqs []string
		if q.Requirement != "" {
			reqs = []string{q.Requirement}
		}

		n := len(matched) + 1
		matched = append(matched, docs.Section{
			ID:           fmt.Sprintf("section_%d", n),
			Index:        n,
			Title:        q.Title,
			Content:      content,
			Requirements: reqs,
		})
	}

	return matched, nil
}

// indexTitles embeds every section title in one batch and loads them into a
// fresh collection. Document IDs are section indices.
func (m *SemanticMatcher) indexTitles(ctx context.Context, sections []docs.MarkdownSection) (*chromem.Collection, error) {
	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}

	vectors, err := m.embedder.EmbedDocuments(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("embedding section titles: %w", err)
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("section-titles", nil, m.embedQuery)
	if err != nil {
		return nil, fmt.Errorf("creating title collection: %w", err)
	}

	chromemDocs := make([]chromem.Document, len(sections))
	for i := range sections {
		chromemDocs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   titles[i],
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return nil, fmt.Errorf("indexing section titles: %w", err)
	}

	return collection, nil
}

// nearestContent returns the body of the section whose title is most similar
// to the question title, or false when nothing clears the threshold.
func (m *SemanticMatcher) nearestContent(ctx context.Context, collection *chromem.Collection, sections []docs.MarkdownSection, title string) (string, bool) {
	results, err := collection.Query(ctx, title, 1, nil, nil)
	if err != nil {
		m.logger.Warn("semantic title query failed, falling back to fuzzy",
			zap.String("title", title), zap.Error(err))
		return "", false
	}
	if len(results) == 0 {
		return "", false
	}

	best := results[0]
	if float64(best.Similarity) < m.threshold {
		m.logger.Debug("best semantic match below threshold",
			zap.String("title", title),
			zap.String("candidate", best.Content),
			zap.Float32("similarity", best.Similarity))
		return "", false
	}

	idx, err := strconv.Atoi(best.ID)
	if err != nil || idx < 0 || idx >= len(sections) {
		return "", false
	}
	return sections[idx].Content, true
}

func (m *SemanticMatcher) embedQuery(ctx context.Context, text string) ([]float32, error) {
	return m.embedder.EmbedQuery(ctx, text)
}

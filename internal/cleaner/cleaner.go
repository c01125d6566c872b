// Package cleaner rewrites documentation files through an LLM, stripping
// filler wording and contradictions while preserving their formatting.
package cleaner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/llm"
)

const (
	cleanAttempts = 3
	retryDelay    = time.Second

	// A source below this many trimmed bytes is not worth sending; a reply
	// below it is treated as empty.
	minSourceLen  = 5
	minCleanedLen = 10

	defaultTemperature = 0.05
)

const markdownCleanTemplate = `Clean this markdown documentation:

1. Remove filler adjectives ("comprehensive", "robust", "innovative").
2. Remove non-informative phrases ("it should be noted", "importantly").
3. Fix contradictory statements.
4. Make statements direct and factual.
5. Remove redundant information.
6. Keep technical accuracy.

Preserve the exact markdown structure: heading levels, lists, tables,
spacing, and indentation. Do not wrap the response in code fences.
Return only the cleaned markdown.

Original document:
{{.content}}

Return the cleaned markdown with identical structure:`

const jsonCleanTemplate = `Clean this JSON documentation file:

1. Remove redundant fields.
2. Fix contradictory values.
3. Fix naming inconsistencies.
4. Keep every field that carries real information.

Preserve the exact JSON structure, key order, and indentation, and keep
the output valid JSON. Do not wrap the response in code fences.

Original JSON:
{{.content}}

Return the cleaned JSON with identical structure:`

// Stats counts what happened to each file in a cleaning pass.
type Stats struct {
	Cleaned      int `json:"cleaned"`       // rewritten with LLM output
	Skipped      int `json:"skipped"`       // empty or non-UTF-8, not sent
	EmptyRetries int `json:"empty_retries"` // replies stayed empty, original kept
	Errors       int `json:"errors"`        // read/write failures or exhausted retries
}

// Cleaner walks a directory and rewrites its .md and .json files.
type Cleaner struct {
	client      llm.Client
	logger      *zap.Logger
	temperature float64
	attempts    int
	delay       time.Duration
}

// New builds a cleaner over the given LLM client.
func New(client llm.Client, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		client:      client,
		logger:      logger,
		temperature: defaultTemperature,
		attempts:    cleanAttempts,
		delay:       retryDelay,
	}
}

// Clean rewrites every .md and .json file under sourceDir, writing results
// under targetDir at the same relative paths. An empty targetDir cleans in
// place. Hidden files and directories are ignored; per-file failures are
// counted and the pass continues.
func (c *Cleaner) Clean(ctx context.Context, sourceDir, targetDir string) (Stats, error) {
	var stats Stats
	if targetDir == "" {
		targetDir = sourceDir
	}

	files, err := findTargets(sourceDir)
	if err != nil {
		return stats, fmt.Errorf("walking %s: %w", sourceDir, err)
	}
	c.logger.Info("cleaning documentation files",
		zap.String("source", sourceDir),
		zap.String("target", targetDir),
		zap.Int("files", len(files)))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		c.cleanFile(ctx, path, sourceDir, targetDir, &stats)
	}

	c.logger.Info("cleaning finished",
		zap.Int("cleaned", stats.Cleaned),
		zap.Int("skipped", stats.Skipped),
		zap.Int("empty_retries", stats.EmptyRetries),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

// findTargets lists the .md and .json files under dir, hidden entries
// excluded, in walk order.
func findTargets(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".json":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Cleaner) cleanFile(ctx context.Context, path, sourceDir, targetDir string, stats *Stats) {
	raw, err := os.ReadFile(path)
	if err != nil {
		c.logger.Error("reading file failed", zap.String("path", path), zap.Error(err))
		stats.Errors++
		return
	}
	if !utf8.Valid(raw) {
		c.logger.Warn("skipping non-UTF-8 file", zap.String("path", path))
		stats.Skipped++
		return
	}

	content := string(raw)
	if len(strings.TrimSpace(content)) < minSourceLen {
		c.logger.Warn("skipping empty file", zap.String("path", path))
		stats.Skipped++
		return
	}

	cleaned, outcome := c.cleanContent(ctx, path, content)
	switch outcome {
	case outcomeEmpty:
		c.logger.Warn("replies stayed empty, keeping original", zap.String("path", path))
		cleaned = content
		stats.EmptyRetries++
	case outcomeError:
		c.logger.Warn("cleaning failed, keeping original", zap.String("path", path))
		cleaned = content
		stats.Errors++
	}

	rel, err := filepath.Rel(sourceDir, path)
	if err != nil {
		c.logger.Error("resolving relative path failed", zap.String("path", path), zap.Error(err))
		stats.Errors++
		return
	}
	target := filepath.Join(targetDir, rel)
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.logger.Error("creating target directory failed", zap.String("path", target), zap.Error(err))
			stats.Errors++
			return
		}
	}
	if err := os.WriteFile(target, []byte(cleaned), 0o644); err != nil {
		c.logger.Error("writing file failed", zap.String("path", target), zap.Error(err))
		stats.Errors++
		return
	}

	if outcome == outcomeOK {
		stats.Cleaned++
		c.logger.Info("cleaned", zap.String("source", path), zap.String("target", target))
	}
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeEmpty
	outcomeError
)

// cleanContent asks the LLM for a cleaned version, retrying failed calls
// and empty replies up to the attempt limit.
func (c *Cleaner) cleanContent(ctx context.Context, path, content string) (string, outcome) {
	rendered, err := cleaningPrompt(path, content)
	if err != nil {
		c.logger.Error("rendering cleaning prompt failed", zap.String("path", path), zap.Error(err))
		return "", outcomeError
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.client.Complete(ctx, llm.Request{
			Prompt:      rendered,
			Temperature: c.temperature,
		})
		if err != nil {
			c.logger.Warn("cleaning call failed",
				zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			if attempt >= c.attempts || !c.pause(ctx) {
				return "", outcomeError
			}
			continue
		}

		cleaned := StripFence(resp.Text)
		if len(strings.TrimSpace(cleaned)) >= minCleanedLen {
			return cleaned, outcomeOK
		}

		c.logger.Warn("cleaning returned empty content",
			zap.String("path", path), zap.Int("attempt", attempt))
		if attempt >= c.attempts || !c.pause(ctx) {
			return "", outcomeEmpty
		}
	}
}

// pause sleeps the retry delay; false means the context ended first.
func (c *Cleaner) pause(ctx context.Context) bool {
	t := time.NewTimer(c.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// cleaningPrompt renders the per-format prompt for path's extension.
// Markdown gets the markdown template; everything else the JSON one.
func cleaningPrompt(path, content string) (string, error) {
	text := jsonCleanTemplate
	if strings.EqualFold(filepath.Ext(path), ".md") {
		text = markdownCleanTemplate
	}

	tmpl := prompts.NewPromptTemplate(text, []string{"content"})
	out, err := tmpl.Format(map[string]any{"content": content})
	if err != nil {
		return "", fmt.Errorf("rendering cleaning prompt: %w", err)
	}
	return out, nil
}

// StripFence unwraps a reply the model wrapped in a single code fence
// (```markdown ... ``` or plain ``` ... ```). Inner fences and unfenced
// replies come back unchanged apart from trimming.
func StripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	nl := strings.IndexByte(trimmed, '\n')
	if nl < 0 {
		return trimmed
	}
	tag := strings.TrimSpace(trimmed[3:nl])
	if strings.ContainsAny(tag, "` ") {
		return trimmed
	}

	body := trimmed[nl+1:]
	if !strings.HasSuffix(body, "```") {
		return trimmed
	}
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

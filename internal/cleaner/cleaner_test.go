package cleaner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/doceval/internal/llm"
)

type mockClient struct {
	mu      sync.Mutex
	calls   int
	prompts []string

	completeFunc func(calls int, req llm.Request) (*llm.Response, error)
}

func (m *mockClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.calls++
	calls := m.calls
	m.prompts = append(m.prompts, req.Prompt)
	m.mu.Unlock()

	if m.completeFunc != nil {
		return m.completeFunc(calls, req)
	}
	return &llm.Response{Text: "Cleaned document body here."}, nil
}

func (m *mockClient) Provider() string { return "mock" }

var _ llm.Client = (*mockClient)(nil)

func newTestCleaner(client llm.Client) *Cleaner {
	c := New(client, nil)
	c.delay = time.Millisecond
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestClean_WritesCleanedFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "guide.md"), "# Guide\n\nA comprehensive, robust overview.\n")
	writeFile(t, filepath.Join(src, "nested", "config.json"), `{"model": "churn", "robustness": "high"}`)
	writeFile(t, filepath.Join(src, "diagram.png"), "not documentation")

	mock := &mockClient{}
	stats, err := newTestCleaner(mock).Clean(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, Stats{Cleaned: 2}, stats)
	assert.Equal(t, "Cleaned document body here.", readFile(t, filepath.Join(dst, "guide.md")))
	assert.Equal(t, "Cleaned document body here.", readFile(t, filepath.Join(dst, "nested", "config.json")))
	assert.NoFileExists(t, filepath.Join(dst, "diagram.png"))

	// Sources stay untouched when a target directory is given.
	assert.Contains(t, readFile(t, filepath.Join(src, "guide.md")), "comprehensive")
}

func TestClean_InPlace(t *testing.T) {
	src := t.TempDir()
	path := filepath.Join(src, "guide.md")
	writeFile(t, path, "# Guide\n\nAn innovative overview.\n")

	stats, err := newTestCleaner(&mockClient{}).Clean(context.Background(), src, "")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Cleaned)
	assert.Equal(t, "Cleaned document body here.", readFile(t, path))
}

func TestClean_PromptMatchesFileType(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "guide.md"), "# Guide\n\nBody text.\n")
	writeFile(t, filepath.Join(src, "config.json"), `{"key": "value"}`)

	mock := &mockClient{}
	_, err := newTestCleaner(mock).Clean(context.Background(), src, t.TempDir())
	require.NoError(t, err)

	// Walk order is lexical: config.json first, then guide.md.
	require.Len(t, mock.prompts, 2)
	assert.Contains(t, mock.prompts[0], "valid JSON")
	assert.Contains(t, mock.prompts[0], `{"key": "value"}`)
	assert.Contains(t, mock.prompts[1], "Preserve the exact markdown structure")
	assert.Contains(t, mock.prompts[1], "# Guide")
}

func TestClean_SkipsEmptyAndHiddenFiles(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "empty.md"), "  \n")
	writeFile(t, filepath.Join(src, ".hidden.md"), "# Hidden but long enough\n")
	writeFile(t, filepath.Join(src, ".git", "notes.md"), "# Inside a hidden dir\n")
	writeFile(t, filepath.Join(src, "real.md"), "# Real document body\n")

	mock := &mockClient{}
	stats, err := newTestCleaner(mock).Clean(context.Background(), src, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Stats{Cleaned: 1, Skipped: 1}, stats)
	assert.Equal(t, 1, mock.calls)
}

func TestClean_EmptyRepliesFallBackToOriginal(t *testing.T) {
	src := t.TempDir()
	original := "# Guide\n\nOriginal body that must survive.\n"
	writeFile(t, filepath.Join(src, "guide.md"), original)

	mock := &mockClient{completeFunc: func(int, llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: "  "}, nil
	}}
	dst := t.TempDir()
	stats, err := newTestCleaner(mock).Clean(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, Stats{EmptyRetries: 1}, stats)
	assert.Equal(t, 3, mock.calls, "empty replies are retried to the attempt limit")
	assert.Equal(t, original, readFile(t, filepath.Join(dst, "guide.md")))
}

func TestClean_CallErrorsFallBackToOriginal(t *testing.T) {
	src := t.TempDir()
	original := "# Guide\n\nOriginal body that must survive.\n"
	writeFile(t, filepath.Join(src, "guide.md"), original)

	mock := &mockClient{completeFunc: func(int, llm.Request) (*llm.Response, error) {
		return nil, errors.New("rate limited")
	}}
	dst := t.TempDir()
	stats, err := newTestCleaner(mock).Clean(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, Stats{Errors: 1}, stats)
	assert.Equal(t, 3, mock.calls)
	assert.Equal(t, original, readFile(t, filepath.Join(dst, "guide.md")))
}

func TestClean_RecoversAfterFailedAttempt(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "guide.md"), "# Guide\n\nBody text.\n")

	mock := &mockClient{completeFunc: func(calls int, _ llm.Request) (*llm.Response, error) {
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &llm.Response{Text: "Recovered clean body."}, nil
	}}
	dst := t.TempDir()
	stats, err := newTestCleaner(mock).Clean(context.Background(), src, dst)
	require.NoError(t, err)

	assert.Equal(t, Stats{Cleaned: 1}, stats)
	assert.Equal(t, 2, mock.calls)
	assert.Equal(t, "Recovered clean body.", readFile(t, filepath.Join(dst, "guide.md")))
}

func TestClean_Canceled(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "guide.md"), "# Guide\n\nBody text.\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCleaner(&mockClient{}).Clean(ctx, src, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "# Title\n\nBody.", "# Title\n\nBody."},
		{"markdown fence", "```markdown\n# Title\n\nBody.\n```", "# Title\n\nBody."},
		{"json fence", "```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"bare fence", "```\ntext\n```", "text"},
		{"whitespace around fence", "  ```markdown\n# T\n```  \n", "# T"},
		{"inner fence kept", "```markdown\n# T\n```go\ncode\n```\n```", "# T\n```go\ncode\n```"},
		{"leading fence only", "```python\ncode\n```\n\n# Rest of doc", "```python\ncode\n```\n\n# Rest of doc"},
		{"fence mid-text untouched", "Intro\n```\ncode\n```", "Intro\n```\ncode\n```"},
		{"trims whitespace", "  body text  ", "body text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

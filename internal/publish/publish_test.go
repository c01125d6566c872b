package publish_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/evaluator"
	"github.com/fyrsmithlabs/doceval/internal/publish"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

func testClient(t *testing.T, h http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = u
	return gh
}

func testSummary() report.Summary {
	return report.Summary{
		Sections:  2,
		Coherence: 0.85,
		Quality:   0.75,
		Capture:   0.80,
		Accuracy:  0.90,
		Overall:   0.825,
		Band:      "good",
	}
}

func testResults() []report.SectionResult {
	return []report.SectionResult{
		{
			Title: "Model Purpose",
			Scores: map[string]evaluator.MetricScore{
				"coherence":     {Score: 0.9},
				"quality":       {Score: 0.8},
				"capture":       {Score: 0.85},
				"hallucination": {Score: 0.1},
			},
			Average: 0.6625,
		},
		{
			Title:   "Data | Sources",
			Scores:  map[string]evaluator.MetricScore{"coherence": {Score: 0.8}},
			Average: 0.8,
		},
	}
}

func TestRenderComment(t *testing.T) {
	meta := &report.RunMeta{
		RunID:      "run-123",
		FinishedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	meta.Git.Commit = "0123456789abcdef"

	body := publish.RenderComment(testSummary(), testResults(), meta)

	lines := []string{
		"<!-- doceval-report -->",
		"## Documentation Evaluation",
		"**Overall 0.82** (good) across 2 sections.",
		"| Coherence | 0.85 |",
		"| Accuracy | 0.90 |",
		"| Model Purpose | 0.90 | 0.80 | 0.85 | 0.10 | 0.66 |",
		`| Data \| Sources | 0.80 | - | - | - | 0.80 |`,
		"_Run run-123, commit 0123456, finished 2025-03-10T12:00:00Z_",
	}
	for _, line := range lines {
		assert.Contains(t, body, line)
	}
}

func TestRenderComment_NoResults(t *testing.T) {
	body := publish.RenderComment(report.Summary{}, nil, nil)
	assert.Contains(t, body, "<!-- doceval-report -->")
	assert.Contains(t, body, "No evaluation results.")
}

func TestPublish_CreatesComment(t *testing.T) {
	var posted string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[]")
	})
	mux.HandleFunc("POST /repos/acme/widgets/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Body string `json:"body"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		posted = in.Body

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 10, "html_url": "https://github.com/acme/widgets/pull/5#issuecomment-10"}`)
	})

	p := publish.New(testClient(t, mux), nil)
	body := publish.RenderComment(testSummary(), testResults(), nil)

	commentURL, err := p.Publish(context.Background(), publish.Request{Owner: "acme", Repo: "widgets", PRNumber: 5}, body)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/widgets/pull/5#issuecomment-10", commentURL)
	assert.Contains(t, posted, "<!-- doceval-report -->")
	assert.Contains(t, posted, "Documentation Evaluation")
}

func TestPublish_UpdatesExistingComment(t *testing.T) {
	var patched string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 3, "body": "unrelated comment"},
			{"id": 7, "body": "<!-- doceval-report -->\nstale report"}
		]`)
	})
	mux.HandleFunc("POST /repos/acme/widgets/issues/5/comments", func(w http.ResponseWriter, r *http.Request) {
		t.Error("existing report comment should be edited, not recreated")
	})
	mux.HandleFunc("PATCH /repos/acme/widgets/issues/comments/7", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Body string `json:"body"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		patched = in.Body

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 7, "html_url": "https://github.com/acme/widgets/pull/5#issuecomment-7"}`)
	})

	p := publish.New(testClient(t, mux), nil)

	commentURL, err := p.Publish(context.Background(), publish.Request{Owner: "acme", Repo: "widgets", PRNumber: 5}, "<!-- doceval-report -->\nfresh report")
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/widgets/pull/5#issuecomment-7", commentURL)
	assert.Contains(t, patched, "fresh report")
}

func TestPublish_Validation(t *testing.T) {
	p := publish.New(github.NewClient(nil), nil)

	_, err := p.Publish(context.Background(), publish.Request{Repo: "widgets", PRNumber: 5}, "body")
	assert.Error(t, err)

	_, err = p.Publish(context.Background(), publish.Request{Owner: "acme", Repo: "widgets"}, "body")
	assert.Error(t, err)
}

func TestNewGitHubClient_RequiresToken(t *testing.T) {
	_, err := publish.NewGitHubClient(context.Background(), config.Secret(""))
	assert.Error(t, err)

	gh, err := publish.NewGitHubClient(context.Background(), config.Secret("token"))
	require.NoError(t, err)
	assert.NotNil(t, gh)
}

func TestResolveRepo(t *testing.T) {
	owner, repo, err := publish.ResolveRepo(config.GitHubConfig{Owner: "acme", Repo: "widgets"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)

	_, _, err = publish.ResolveRepo(config.GitHubConfig{}, t.TempDir())
	assert.Error(t, err, "no config and no git origin")
}

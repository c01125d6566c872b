// Package integration exercises the full evaluation pipeline against the
// repository's sample questions and documents, with an OpenAI-compatible
// stub standing in for the LLM provider.
package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/doceval/internal/config"
)

// Deterministic stub scores per metric.
const (
	stubCoherence     = 0.9
	stubQuality       = 0.8
	stubCapture       = 0.7
	stubHallucination = 0.1
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// newStubLLMServer serves an OpenAI-compatible chat completions endpoint
// that answers each metric prompt with a fixed score. Requirement
// generation prompts get a three-item list.
func newStubLLMServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Messages) == 0 {
			http.Error(w, "no messages", http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content

		var text string
		switch {
		case strings.HasPrefix(prompt, "Evaluate the following output for coherence"):
			text = "Score: 0.9\nClear logical flow throughout."
		case strings.HasPrefix(prompt, "Evaluate the quality"):
			text = "Score: 0.8\nRequirements are addressed in detail."
		case strings.HasPrefix(prompt, "Evaluate the capture rate"):
			text = "Score: 0.7\nMost requirement points are covered."
		case strings.HasPrefix(prompt, "Evaluate the following output for hallucinations"):
			text = "Score: 0.1\nNo fabricated information found."
		case strings.HasPrefix(prompt, "Generate specific requirements"):
			text = "- Name the data owner.\n- State the refresh frequency.\n- Describe the certification process."
		default:
			text = "Score: 0.5\nUnrecognized prompt."
		}

		resp := map[string]any{
			"model": req.Model,
			"choices": []map[string]any{{
				"message":       chatMessage{Role: "assistant", Content: text},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 200, "completion_tokens": 30},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// testConfig builds a configuration over the repository's sample data,
// the stub LLM, and a temporary output directory. The rate limit is
// raised so the 36 metric calls of a full run finish quickly.
func testConfig(t *testing.T, llmURL string) *config.Config {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Paths.QuestionsDir = "../../config"
	cfg.Paths.DocsDir = "../../examples"
	cfg.Paths.PromptsFile = "../../config/prompts.yaml"
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Sections = config.SectionsConfig{Start: 1, End: 3}

	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.Model = "stub-model"
	cfg.LLM.BaseURL = llmURL
	cfg.LLM.RequestsPerMinute = 6000
	cfg.LLM.Burst = 100

	cfg.Evaluation.GenerateRequirements = true
	return cfg
}

package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/doceval/internal/progress"
)

func newTestDaemon(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sections":2,"coherence":0.7,"quality":0.75,"capture":0.8,"accuracy":0.9,"overall":0.7875,"band":"fair"}`))
	})
	mux.HandleFunc("/api/v1/sections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sections":[{"section_id":"section_1","title":"Model Purpose","average":0.65,"number":1},{"section_id":"section_1","title":"Training Procedure","average":0.7,"number":2}],"count":2}`))
	})
	mux.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"runs":[{"id":"run-1","status":"running","percent":40,"message":"section 1 of 2"}],"count":1}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := NewClient("http://localhost:8050/")
	assert.Equal(t, "http://localhost:8050", c.baseURL)
}

func TestClient_Summary(t *testing.T) {
	srv := newTestDaemon(t)
	c := NewClient(srv.URL)

	summary, err := c.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sections)
	assert.InDelta(t, 0.7875, summary.Overall, 0.0001)
	assert.Equal(t, "fair", summary.Band)
}

func TestClient_Sections(t *testing.T) {
	srv := newTestDaemon(t)
	c := NewClient(srv.URL)

	sections, err := c.Sections(context.Background())
	require.NoError(t, err)

	require.Len(t, sections, 2)
	assert.Equal(t, "Model Purpose", sections[0].Title)
	assert.Equal(t, 2, sections[1].Number)
}

func TestClient_Runs(t *testing.T) {
	srv := newTestDaemon(t)
	c := NewClient(srv.URL)

	runs, err := c.Runs(context.Background())
	require.NoError(t, err)

	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, progress.StatusRunning, runs[0].Status)
	assert.Equal(t, 40, runs[0].Percent)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)

	_, err := c.Summary(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code 500")
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	c.client.Timeout = 50 * time.Millisecond

	_, err := c.Summary(context.Background())
	require.Error(t, err)
}

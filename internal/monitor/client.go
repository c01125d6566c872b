package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

// Client queries the doceval daemon API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a daemon API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Summary fetches the current evaluation summary.
func (c *Client) Summary(ctx context.Context) (report.Summary, error) {
	var summary report.Summary
	if err := c.get(ctx, "/api/v1/summary", &summary); err != nil {
		return report.Summary{}, err
	}
	return summary, nil
}

// Sections fetches every section result, ordered by section number.
func (c *Client) Sections(ctx context.Context) ([]report.SectionResult, error) {
	var envelope struct {
		Sections []report.SectionResult `json:"sections"`
	}
	if err := c.get(ctx, "/api/v1/sections", &envelope); err != nil {
		return nil, err
	}
	return envelope.Sections, nil
}

// Runs fetches the tracked runs, newest first.
func (c *Client) Runs(ctx context.Context) ([]progress.RunView, error) {
	var envelope struct {
		Runs []progress.RunView `json:"runs"`
	}
	if err := c.get(ctx, "/api/v1/runs", &envelope); err != nil {
		return nil, err
	}
	return envelope.Runs, nil
}

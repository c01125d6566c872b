// Package publish posts evaluation summaries to GitHub pull requests as
// bot-maintained comments.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/gitinfo"
	"github.com/fyrsmithlabs/doceval/internal/prompt"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

// commentMarker identifies the bot's comment so reruns update it in place.
const commentMarker = "<!-- doceval-report -->"

// NewGitHubClient creates an authenticated GitHub client.
func NewGitHubClient(ctx context.Context, token config.Secret) (*github.Client, error) {
	if !token.IsSet() {
		return nil, errors.New("github token not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc), nil
}

// Request addresses one pull request.
type Request struct {
	Owner    string
	Repo     string
	PRNumber int
}

// Publisher upserts report comments on pull requests.
type Publisher struct {
	gh     *github.Client
	logger *zap.Logger
}

// New builds a publisher over the given client.
func New(gh *github.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{gh: gh, logger: logger}
}

// ResolveRepo returns the owner/repo to publish to: explicit configuration
// wins, otherwise the git origin of path.
func ResolveRepo(cfg config.GitHubConfig, path string) (owner, repo string, err error) {
	if cfg.Owner != "" && cfg.Repo != "" {
		return cfg.Owner, cfg.Repo, nil
	}
	info := gitinfo.Describe(path)
	if info.Owner != "" && info.Repo != "" {
		return info.Owner, info.Repo, nil
	}
	return "", "", errors.New("github owner/repo not configured and no origin remote found")
}

// Publish posts body as the report comment on the pull request, editing the
// previous report comment when one exists. Returns the comment URL.
func (p *Publisher) Publish(ctx context.Context, req Request, body string) (string, error) {
	if req.Owner == "" || req.Repo == "" {
		return "", errors.New("github owner and repo required")
	}
	if req.PRNumber <= 0 {
		return "", fmt.Errorf("invalid pull request number: %d", req.PRNumber)
	}

	existing, err := p.findReportComment(ctx, req)
	if err != nil {
		return "", err
	}

	if existing != nil {
		updated, _, err := p.gh.Issues.EditComment(ctx, req.Owner, req.Repo, existing.GetID(), &github.IssueComment{
			Body: &body,
		})
		if err != nil {
			return "", fmt.Errorf("updating report comment: %w", err)
		}
		p.logger.Info("updated report comment",
			zap.String("repo", req.Owner+"/"+req.Repo),
			zap.Int("pr", req.PRNumber),
			zap.String("url", updated.GetHTMLURL()))
		return updated.GetHTMLURL(), nil
	}

	created, _, err := p.gh.Issues.CreateComment(ctx, req.Owner, req.Repo, req.PRNumber, &github.IssueComment{
		Body: &body,
	})
	if err != nil {
		return "", fmt.Errorf("creating report comment: %w", err)
	}
	p.logger.Info("created report comment",
		zap.String("repo", req.Owner+"/"+req.Repo),
		zap.Int("pr", req.PRNumber),
		zap.String("url", created.GetHTMLURL()))
	return created.GetHTMLURL(), nil
}

// findReportComment pages through the PR's comments looking for the marker.
func (p *Publisher) findReportComment(ctx context.Context, req Request) (*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		comments, resp, err := p.gh.Issues.ListComments(ctx, req.Owner, req.Repo, req.PRNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments: %w", err)
		}
		for _, c := range comments {
			if strings.Contains(c.GetBody(), commentMarker) {
				return c, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// RenderComment renders the markdown report comment: overall banner, metric
// table, per-section table, and the run footer.
func RenderComment(summary report.Summary, results []report.SectionResult, meta *report.RunMeta) string {
	var b strings.Builder
	b.WriteString(commentMarker + "\n")
	b.WriteString("## Documentation Evaluation\n\n")

	if summary.Sections == 0 {
		b.WriteString("No evaluation results.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**Overall %.2f** (%s) across %d sections.\n\n",
		summary.Overall, summary.Band, summary.Sections)

	b.WriteString("| Metric | Score |\n|---|---|\n")
	fmt.Fprintf(&b, "| Coherence | %.2f |\n", summary.Coherence)
	fmt.Fprintf(&b, "| Quality | %.2f |\n", summary.Quality)
	fmt.Fprintf(&b, "| Capture | %.2f |\n", summary.Capture)
	fmt.Fprintf(&b, "| Accuracy | %.2f |\n", summary.Accuracy)

	if len(results) > 0 {
		b.WriteString("\n| Section | Coherence | Quality | Capture | Hallucination | Average |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, res := range results {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %.2f |\n",
				escapeCell(res.Title),
				scoreCell(res, prompt.MetricCoherence),
				scoreCell(res, prompt.MetricQuality),
				scoreCell(res, prompt.MetricCapture),
				scoreCell(res, prompt.MetricHallucination),
				res.Average)
		}
	}

	if meta != nil {
		fmt.Fprintf(&b, "\n_Run %s", meta.RunID)
		if meta.Git.Commit != "" {
			fmt.Fprintf(&b, ", commit %s", shortCommit(meta.Git.Commit))
		}
		if !meta.FinishedAt.IsZero() {
			fmt.Fprintf(&b, ", finished %s", meta.FinishedAt.UTC().Format(time.RFC3339))
		}
		b.WriteString("_\n")
	}

	return b.String()
}

func scoreCell(res report.SectionResult, metric string) string {
	s, ok := res.Scores[metric]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", s.Score)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

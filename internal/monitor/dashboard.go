// Package monitor is the terminal dashboard for watching evaluation runs.
// It polls the doceval daemon API and renders metric means, a sparkline of
// section averages, and live run progress.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	recentRunsShown = 3
)

// StatusSnapshot holds one poll of the daemon state.
type StatusSnapshot struct {
	Summary  report.Summary
	Averages []float64
	Runs     []progress.RunView
}

// Model is the BubbleTea dashboard model.
type Model struct {
	baseURL    string
	interval   time.Duration
	lastUpdate time.Time
	status     StatusSnapshot
	err        error
	quitting   bool

	runProgress progressbar.Model
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a dashboard model polling the daemon at baseURL.
func NewModel(baseURL string, interval time.Duration) Model {
	return Model{
		baseURL:  baseURL,
		interval: interval,
		runProgress: progressbar.New(
			progressbar.WithGradient("#dc3545", "#28a745"),
			progressbar.WithWidth(40),
		),
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(baseURL string, interval time.Duration) error {
	p := tea.NewProgram(NewModel(baseURL, interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running monitor: %w", err)
	}
	return nil
}

// Message types
type tickMsg time.Time
type statusMsg StatusSnapshot
type errMsg error

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStatus(m.baseURL),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStatus polls the daemon for the summary, section averages, and runs.
func fetchStatus(baseURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := NewClient(baseURL)

		summary, err := client.Summary(ctx)
		if err != nil {
			return errMsg(err)
		}
		sections, err := client.Sections(ctx)
		if err != nil {
			return errMsg(err)
		}
		runs, err := client.Runs(ctx)
		if err != nil {
			return errMsg(err)
		}

		averages := make([]float64, 0, len(sections))
		for _, s := range sections {
			averages = append(averages, s.Average)
		}
		if len(averages) > historySize {
			averages = averages[len(averages)-historySize:]
		}

		return statusMsg(StatusSnapshot{
			Summary:  summary,
			Averages: averages,
			Runs:     runs,
		})
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.baseURL)
		}

	case tickMsg:
		// Auto-refresh; also retries after a failed poll.
		return m, tea.Batch(
			tick(m.interval),
			fetchStatus(m.baseURL),
		)

	case statusMsg:
		m.status = StatusSnapshot(msg)
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render(" doceval Monitor ")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Daemon unreachable") + "\n"
	content += "\n"
	content += dimStyle.Render("URL: ") + valueStyle.Render(m.baseURL) + "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("Please ensure:") + "\n"
	content += dimStyle.Render("  1. the daemon is running (docevald)") + "\n"
	content += dimStyle.Render("  2. server.host and server.port point at it") + "\n"
	content += "\n"
	content += footerStyle.Render("[q] quit  [r] retry") + "\n"

	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderDashboard() string {
	var content string

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	header := headerStyle.Render(" doceval Monitor ")
	headerLine := fmt.Sprintf("%s   %s %s   %s",
		bandBadge(m.status.Summary),
		dimStyle.Render("Sections:"),
		valueStyle.Render(fmt.Sprintf("%d", m.status.Summary.Sections)),
		dimStyle.Render(lastUpdateStr))

	content += header + "\n"
	content += headerLine + "\n"

	// Metric means
	content += "\n" + sectionStyle.Render("┃ Metrics") + "\n"
	s := m.status.Summary
	if s.Sections == 0 {
		content += dimStyle.Render("  No evaluation results yet.") + "\n"
	} else {
		content += metricLine("Coherence", s.Coherence)
		content += metricLine("Quality", s.Quality)
		content += metricLine("Capture", s.Capture)
		content += metricLine("Accuracy", s.Accuracy)
		content += labelStyle.Render("  Overall:   ") +
			valueStyle.Render(FormatScore(s.Overall)) +
			" " + bandBadge(s) + "\n"
	}

	// Section averages sparkline
	content += "\n" + sectionStyle.Render("┃ Section Averages") + "\n"
	content += "  " + createSparkline(m.status.Averages) + "\n"

	// Runs
	content += "\n" + sectionStyle.Render("┃ Runs") + "\n"
	if active := activeRun(m.status.Runs); active != nil {
		percent := float64(active.Percent) / 100
		content += labelStyle.Render("  Active: ") +
			valueStyle.Render(ShortID(active.ID)) +
			" " + runBadge(active.Status) + "\n"
		content += labelStyle.Render("  Progress: ") +
			m.runProgress.ViewAs(percent) +
			" " + dimStyle.Render(fmt.Sprintf("%d%%", active.Percent)) + "\n"
		if active.Message != "" {
			content += dimStyle.Render("  "+active.Message) + "\n"
		}
	} else {
		content += dimStyle.Render("  No active run.") + "\n"
	}
	for _, view := range recentFinished(m.status.Runs, recentRunsShown) {
		content += labelStyle.Render("  "+ShortID(view.ID)+" ") +
			runBadge(view.Status) +
			dimStyle.Render("  "+FormatAge(time.Since(view.UpdatedAt))) + "\n"
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
	content += "\n" + footer

	return containerStyle.Render(content)
}

func metricLine(name string, score float64) string {
	return labelStyle.Render(fmt.Sprintf("  %-10s", name+":")) +
		valueStyle.Render(FormatScore(score)) +
		" " + scoreBadge(score) + "\n"
}

// bandBadge renders the overall quality badge for the summary.
func bandBadge(summary report.Summary) string {
	if summary.Sections == 0 {
		return dimStyle.Render("· NO DATA")
	}
	switch summary.Band {
	case "good":
		return healthyStyle.Render("✓ GOOD")
	case "fair":
		return healthyStyle.Render("✓ FAIR")
	case "warn":
		return warningStyle.Render("⚠ WARN")
	default:
		return errorStyle.Render("✗ POOR")
	}
}

// scoreBadge renders a per-metric badge using the dashboard score bands.
func scoreBadge(score float64) string {
	switch report.Band(score) {
	case "good", "fair":
		return healthyStyle.Render("[✓]")
	case "warn":
		return warningStyle.Render("[⚠]")
	default:
		return errorStyle.Render("[✗]")
	}
}

func runBadge(status progress.Status) string {
	switch status {
	case progress.StatusCompleted:
		return healthyStyle.Render("✓ completed")
	case progress.StatusFailed:
		return errorStyle.Render("✗ failed")
	case progress.StatusRunning:
		return warningStyle.Render("▶ running")
	default:
		return dimStyle.Render("… pending")
	}
}

// activeRun returns the newest run that is still pending or running.
func activeRun(runs []progress.RunView) *progress.RunView {
	for i := range runs {
		if runs[i].Status == progress.StatusRunning || runs[i].Status == progress.StatusPending {
			return &runs[i]
		}
	}
	return nil
}

func recentFinished(runs []progress.RunView, limit int) []progress.RunView {
	var finished []progress.RunView
	for _, r := range runs {
		if r.Status != progress.StatusCompleted && r.Status != progress.StatusFailed {
			continue
		}
		finished = append(finished, r)
		if len(finished) == limit {
			break
		}
	}
	return finished
}

// createSparkline renders section averages as a sparkline chart.
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()

	return sparklineStyle.Render(spark.View())
}

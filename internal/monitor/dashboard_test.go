package monitor

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

func testSnapshot() StatusSnapshot {
	return StatusSnapshot{
		Summary: report.Summary{
			Sections:  3,
			Coherence: 0.78,
			Quality:   0.77,
			Capture:   0.8,
			Accuracy:  0.88,
			Overall:   0.81,
			Band:      "good",
		},
		Averages: []float64{0.65, 0.5, 0.7},
		Runs: []progress.RunView{
			{
				ID:        "0d4f2c6a-93f1-4c58-8f3d-2a1b0c9d8e7f",
				Status:    progress.StatusRunning,
				Percent:   50,
				Message:   "section 1 of 2",
				UpdatedAt: time.Now(),
			},
			{
				ID:        "9b8c7d6e-5f4a-3b2c-1d0e-f9e8d7c6b5a4",
				Status:    progress.StatusCompleted,
				Percent:   100,
				UpdatedAt: time.Now().Add(-2 * time.Minute),
			},
		},
	}
}

func TestNewModel(t *testing.T) {
	m := NewModel("http://localhost:8050", 2*time.Second)

	assert.Equal(t, "http://localhost:8050", m.baseURL)
	assert.Equal(t, 2*time.Second, m.interval)
	assert.False(t, m.quitting)
	assert.Nil(t, m.err)
}

func TestInit(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	cmd := m.Init()
	assert.NotNil(t, cmd)
}

func TestUpdate_Quit(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	updatedModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	updated := updatedModel.(Model)
	assert.True(t, updated.quitting)
	assert.NotNil(t, cmd)
}

func TestUpdate_CtrlC(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	updatedModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	updated := updatedModel.(Model)
	assert.True(t, updated.quitting)
	assert.NotNil(t, cmd)
}

func TestUpdate_ManualRefresh(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

	assert.NotNil(t, cmd)
}

func TestUpdate_Tick(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	_, cmd := m.Update(tickMsg(time.Now()))

	// Tick schedules the next tick plus a fetch.
	assert.NotNil(t, cmd)
}

func TestUpdate_Status(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)
	m.err = errors.New("previous failure")

	updatedModel, cmd := m.Update(statusMsg(testSnapshot()))

	updated := updatedModel.(Model)
	assert.Nil(t, cmd)
	assert.Nil(t, updated.err)
	assert.False(t, updated.lastUpdate.IsZero())
	assert.Equal(t, 3, updated.status.Summary.Sections)
	assert.Len(t, updated.status.Runs, 2)
}

func TestUpdate_Error(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	updatedModel, cmd := m.Update(errMsg(errors.New("connection refused")))

	updated := updatedModel.(Model)
	assert.Nil(t, cmd)
	require.Error(t, updated.err)
	assert.Contains(t, updated.err.Error(), "connection refused")
}

func TestView_Dashboard(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)
	m.status = testSnapshot()
	m.lastUpdate = time.Now()

	view := m.View()

	assert.Contains(t, view, "doceval Monitor")
	assert.Contains(t, view, "0.81")
	assert.Contains(t, view, "✓ GOOD")
	assert.Contains(t, view, "Coherence")
	assert.Contains(t, view, "Accuracy")
	assert.Contains(t, view, "Section Averages")
	assert.Contains(t, view, "▶ running")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "section 1 of 2")
	assert.Contains(t, view, "✓ completed")
	assert.Contains(t, view, "[q]")
	assert.Contains(t, view, "[r]")
}

func TestView_NoData(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)

	view := m.View()

	assert.Contains(t, view, "No evaluation results yet.")
	assert.Contains(t, view, "NO DATA")
	assert.Contains(t, view, "no data")
	assert.Contains(t, view, "No active run.")
}

func TestView_Error(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)
	m.err = errors.New("dial tcp: connection refused")

	view := m.View()

	assert.Contains(t, view, "Daemon unreachable")
	assert.Contains(t, view, "http://localhost:8050")
	assert.Contains(t, view, "connection refused")
	assert.Contains(t, view, "[r] retry")
}

func TestView_Quitting(t *testing.T) {
	m := NewModel("http://localhost:8050", time.Second)
	m.quitting = true

	assert.Empty(t, m.View())
}

func TestActiveRun(t *testing.T) {
	snapshot := testSnapshot()

	active := activeRun(snapshot.Runs)
	require.NotNil(t, active)
	assert.Equal(t, progress.StatusRunning, active.Status)

	finishedOnly := snapshot.Runs[1:]
	assert.Nil(t, activeRun(finishedOnly))
}

func TestRecentFinished(t *testing.T) {
	runs := []progress.RunView{
		{ID: "a", Status: progress.StatusRunning},
		{ID: "b", Status: progress.StatusCompleted},
		{ID: "c", Status: progress.StatusFailed},
		{ID: "d", Status: progress.StatusCompleted},
	}

	finished := recentFinished(runs, 2)
	require.Len(t, finished, 2)
	assert.Equal(t, "b", finished[0].ID)
	assert.Equal(t, "c", finished[1].ID)
}

func TestCreateSparkline(t *testing.T) {
	assert.Contains(t, createSparkline(nil), "no data")
	assert.NotEmpty(t, createSparkline([]float64{0.5, 0.7, 0.9}))
}

package server

import (
	"embed"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/doceval/internal/prompt"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &renderer{templates: t}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// scoreColor maps a score to its display color, red through green. For
// hallucination lower is better, so its scale runs inverted.
func scoreColor(score float64, inverted bool) string {
	if inverted {
		score = 1 - score
	}
	switch {
	case score > 0.8:
		return "#28a745"
	case score > 0.6:
		return "#5cb85c"
	case score > 0.4:
		return "#ffc107"
	case score > 0.2:
		return "#ff9800"
	default:
		return "#dc3545"
	}
}

// bandColor maps a summary band to the overall score box color.
func bandColor(band string) string {
	switch band {
	case "good":
		return "#28a745"
	case "fair":
		return "#5cb85c"
	case "warn":
		return "#ff9800"
	default:
		return "#dc3545"
	}
}

// scoreCell is one colored score cell in the section table.
type scoreCell struct {
	Present bool
	Score   float64
	Color   string
}

// sectionRow is one section result row on the dashboard.
type sectionRow struct {
	Number        int
	Title         string
	Coherence     scoreCell
	Quality       scoreCell
	Capture       scoreCell
	Hallucination scoreCell
	Average       scoreCell
}

// improvement flags the weakest section for one metric.
type improvement struct {
	Metric  string
	Label   string
	Score   float64
	Title   string
	Comment string
	Color   string
}

type dashboardData struct {
	Summary      report.Summary
	OverallColor string
	Rows         []sectionRow
	Improvements []improvement
	Meta         *report.RunMeta
}

// metricCard is one metric on the section detail page.
type metricCard struct {
	Name    string
	Score   float64
	Comment string
	Color   string
}

// sectionDetail is one evaluated result on the section detail page.
type sectionDetail struct {
	Title        string
	Content      string
	Requirements []string
	Cards        []metricCard
	Average      float64
	AverageColor string
}

type sectionPageData struct {
	Number  int
	Results []sectionDetail
}

func (s *Server) handleDashboard(c echo.Context) error {
	results := s.cache.Results()
	summary := s.cache.Summary()

	data := dashboardData{
		Summary:      summary,
		OverallColor: bandColor(summary.Band),
		Rows:         buildRows(results),
		Improvements: buildImprovements(results),
		Meta:         s.cache.Meta(),
	}
	return c.Render(http.StatusOK, "dashboard.html", data)
}

func (s *Server) handleSectionPage(c echo.Context) error {
	number, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid section number")
	}

	results := s.cache.Section(number)
	if len(results) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "section not found")
	}
	return c.Render(http.StatusOK, "section.html", buildSectionPage(number, results))
}

func metricCell(r report.SectionResult, metric string, inverted bool) scoreCell {
	ms, ok := r.Scores[metric]
	if !ok {
		return scoreCell{}
	}
	return scoreCell{Present: true, Score: ms.Score, Color: scoreColor(ms.Score, inverted)}
}

func buildRows(results []report.SectionResult) []sectionRow {
	rows := make([]sectionRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, sectionRow{
			Number:        r.Number,
			Title:         r.Title,
			Coherence:     metricCell(r, prompt.MetricCoherence, false),
			Quality:       metricCell(r, prompt.MetricQuality, false),
			Capture:       metricCell(r, prompt.MetricCapture, false),
			Hallucination: metricCell(r, prompt.MetricHallucination, true),
			Average:       scoreCell{Present: true, Score: r.Average, Color: scoreColor(r.Average, false)},
		})
	}
	return rows
}

// buildImprovements finds the weakest section per metric: the lowest
// coherence, quality, and capture scores and the highest hallucination
// score.
func buildImprovements(results []report.SectionResult) []improvement {
	type pick struct {
		metric   string
		display  string
		label    string
		inverted bool
	}
	picks := []pick{
		{prompt.MetricCoherence, "Coherence", "Lowest score", false},
		{prompt.MetricQuality, "Quality", "Lowest score", false},
		{prompt.MetricCapture, "Capture Rate", "Lowest score", false},
		{prompt.MetricHallucination, "Hallucination", "Highest score", true},
	}

	var improvements []improvement
	for _, p := range picks {
		var worst *report.SectionResult
		var worstScore float64
		for i := range results {
			ms, ok := results[i].Scores[p.metric]
			if !ok {
				continue
			}
			pickIt := worst == nil ||
				(!p.inverted && ms.Score < worstScore) ||
				(p.inverted && ms.Score > worstScore)
			if pickIt {
				worst = &results[i]
				worstScore = ms.Score
			}
		}
		if worst == nil {
			continue
		}
		improvements = append(improvements, improvement{
			Metric:  p.display,
			Label:   p.label,
			Score:   worstScore,
			Title:   worst.Title,
			Comment: worst.Scores[p.metric].Comment,
			Color:   scoreColor(worstScore, p.inverted),
		})
	}
	return improvements
}

func buildSectionPage(number int, results []report.SectionResult) sectionPageData {
	data := sectionPageData{Number: number}
	for _, r := range results {
		detail := sectionDetail{
			Title:        r.Title,
			Content:      r.Content,
			Requirements: r.Requirements,
			Average:      r.Average,
			AverageColor: scoreColor(r.Average, false),
		}
		cards := []struct {
			metric   string
			display  string
			inverted bool
		}{
			{prompt.MetricCoherence, "Coherence", false},
			{prompt.MetricQuality, "Quality", false},
			{prompt.MetricCapture, "Capture Rate", false},
			{prompt.MetricHallucination, "Hallucination", true},
		}
		for _, card := range cards {
			ms, ok := r.Scores[card.metric]
			if !ok {
				continue
			}
			detail.Cards = append(detail.Cards, metricCard{
				Name:    card.display,
				Score:   ms.Score,
				Comment: ms.Comment,
				Color:   scoreColor(ms.Score, card.inverted),
			})
		}
		data.Results = append(data.Results, detail)
	}
	return data
}

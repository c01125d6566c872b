package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/doceval/internal/progress"
	"github.com/fyrsmithlabs/doceval/internal/report"
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// ReadyResponse is the /readyz body.
type ReadyResponse struct {
	Status   string    `json:"status"`
	Sections int       `json:"sections,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// SectionsResponse lists every cached section result.
type SectionsResponse struct {
	Sections []report.SectionResult `json:"sections"`
	Count    int                    `json:"count"`
}

// SectionResponse holds the results of one document section. A section
// file yields one result per matched question, so Results usually has
// several entries.
type SectionResponse struct {
	Number  int                    `json:"number"`
	Results []report.SectionResult `json:"results"`
}

// RunsResponse lists tracked runs, newest first.
type RunsResponse struct {
	Runs  []progress.RunView `json:"runs"`
	Count int                `json:"count"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Time: time.Now()})
}

func (s *Server) handleReady(c echo.Context) error {
	if !s.cache.Ready() {
		return c.JSON(http.StatusServiceUnavailable, ReadyResponse{Status: "loading"})
	}
	return c.JSON(http.StatusOK, ReadyResponse{
		Status:   "ready",
		Sections: len(s.cache.Results()),
		LoadedAt: s.cache.LoadedAt(),
	})
}

func (s *Server) handleSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cache.Summary())
}

func (s *Server) handleSections(c echo.Context) error {
	results := s.cache.Results()
	return c.JSON(http.StatusOK, SectionsResponse{Sections: results, Count: len(results)})
}

func (s *Server) handleSection(c echo.Context) error {
	number, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid section number")
	}

	results := s.cache.Section(number)
	if len(results) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "section not found")
	}
	return c.JSON(http.StatusOK, SectionResponse{Number: number, Results: results})
}

func (s *Server) handleRuns(c echo.Context) error {
	runs := s.registry.List()
	return c.JSON(http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}

func (s *Server) handleRun(c echo.Context) error {
	view, err := s.registry.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, view)
}

// Package server provides the doceval dashboard daemon: a JSON API over
// the evaluation reports and run registry, an SSE stream of live run
// events, and the HTML dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/config"
	"github.com/fyrsmithlabs/doceval/internal/progress"
)

// Server serves the dashboard, the report API, and run event streams.
type Server struct {
	cfg      config.ServerConfig
	echo     *echo.Echo
	cache    *Cache
	registry *progress.Registry
	nats     *nats.Conn
	logger   *zap.Logger
}

// New creates the dashboard server. nc may be nil; run event streaming is
// then limited to finished runs.
func New(cfg config.ServerConfig, cache *Cache, registry *progress.Registry, nc *nats.Conn, logger *zap.Logger) (*Server, error) {
	if cache == nil {
		return nil, errors.New("report cache is required")
	}
	if registry == nil {
		return nil, errors.New("run registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout.Duration()
	// WriteTimeout stays at the configured value; zero keeps SSE streams
	// open indefinitely.
	e.Server.WriteTimeout = cfg.WriteTimeout.Duration()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	renderer, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}
	e.Renderer = renderer

	s := &Server{
		cfg:      cfg,
		echo:     e,
		cache:    cache,
		registry: registry,
		nats:     nc,
		logger:   logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/readyz", s.handleReady)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/", s.handleDashboard)
	s.echo.GET("/sections/:id", s.handleSectionPage)

	api := s.echo.Group("/api/v1")
	api.GET("/summary", s.handleSummary)
	api.GET("/sections", s.handleSections)
	api.GET("/sections/:id", s.handleSection)
	api.GET("/runs", s.handleRuns)
	api.GET("/runs/:id", s.handleRun)
	api.GET("/runs/:id/events", s.handleRunEvents)
}

// requestLogger logs every request with its latency and request ID.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

// Echo exposes the underlying echo instance for extra routes and tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves until ctx is canceled, then shuts down gracefully. It
// returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Addr()
	s.logger.Info("dashboard server starting", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()

		s.logger.Info("dashboard server shutting down")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/progress"
)

// heartbeatInterval keeps idle SSE connections from being reaped by
// proxies between run events.
const heartbeatInterval = 30 * time.Second

// handleRunEvents streams one run's lifecycle events as server-sent
// events. The stream opens with a snapshot of the current state, then
// relays the run's NATS events until the run completes or fails or the
// client disconnects.
func (s *Server) handleRunEvents(c echo.Context) error {
	runID := c.Param("id")
	view, err := s.registry.Get(runID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	if view.Status == progress.StatusPending || view.Status == progress.StatusRunning {
		if s.nats == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "event streaming requires NATS")
		}
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	// Subscribe before the snapshot so no event falls between them.
	var msgChan chan *nats.Msg
	if s.nats != nil {
		msgChan = make(chan *nats.Msg, 10)
		sub, err := s.nats.ChanSubscribe(progress.RunSubjects(runID), msgChan)
		if err != nil {
			s.logger.Error("run event subscription failed",
				zap.String("run_id", runID), zap.Error(err))
			return fmt.Errorf("subscribing to run events: %w", err)
		}
		defer sub.Unsubscribe()
	}

	if err := writeEvent(c, "snapshot", view); err != nil {
		return err
	}
	if view.Status == progress.StatusCompleted || view.Status == progress.StatusFailed {
		return nil
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			s.logger.Debug("run event client disconnected", zap.String("run_id", runID))
			return nil

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Response(), ": heartbeat\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()

		case msg := <-msgChan:
			// Subjects are evals.{run_id}.{event}; the last token names
			// the event.
			parts := strings.Split(msg.Subject, ".")
			event := parts[len(parts)-1]

			if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, msg.Data); err != nil {
				return nil
			}
			c.Response().Flush()

			if event == "completed" || event == "error" {
				return nil
			}
		}
	}
}

func writeEvent(c echo.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

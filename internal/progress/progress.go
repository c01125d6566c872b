// Package progress tracks evaluation runs in memory and publishes their
// lifecycle events to NATS for live dashboards and monitors.
//
// Events are published to subjects:
//
//	evals.{run_id}.started
//	evals.{run_id}.progress
//	evals.{run_id}.log
//	evals.{run_id}.error
//	evals.{run_id}.completed
//
// A nil NATS connection keeps the registry fully functional for
// single-process use; events are then tracked in memory only.
package progress

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Status is a run lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// cleanupTTL is how long finished runs stay listed.
const cleanupTTL = time.Hour

// Subject returns the NATS subject for one run event.
func Subject(runID, event string) string {
	return fmt.Sprintf("evals.%s.%s", runID, event)
}

// RunSubjects returns the wildcard subscription matching every event of a
// run.
func RunSubjects(runID string) string {
	return fmt.Sprintf("evals.%s.*", runID)
}

// RunView is a snapshot of one run's state.
type RunView struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Result    any       `json:"result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// run guards its view so the pipeline can mutate while API handlers read.
type run struct {
	mu   sync.Mutex
	view RunView
}

func (r *run) update(fn func(*RunView)) RunView {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.view)
	r.view.UpdatedAt = time.Now()
	return r.view
}

func (r *run) snapshot() RunView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Registry tracks evaluation runs.
type Registry struct {
	nats   *nats.Conn
	logger *zap.Logger
	ttl    time.Duration
	runs   sync.Map // run id -> *run
}

// NewRegistry creates a run registry. nc may be nil to disable event
// publishing.
func NewRegistry(nc *nats.Conn, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{nats: nc, logger: logger, ttl: cleanupTTL}
}

// Create registers a new pending run and returns its ID.
func (r *Registry) Create() string {
	id := uuid.New().String()
	now := time.Now()
	r.runs.Store(id, &run{view: RunView{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}})
	return id
}

// Started marks the run as running and publishes the started event.
func (r *Registry) Started(runID string) error {
	rn, err := r.lookup(runID)
	if err != nil {
		return err
	}
	view := rn.update(func(v *RunView) { v.Status = StatusRunning })
	return r.publish(runID, "started", view)
}

// SectionDone records completion of one section and publishes a progress
// event.
func (r *Registry) SectionDone(runID string, percent int, message string) error {
	rn, err := r.lookup(runID)
	if err != nil {
		return err
	}
	rn.update(func(v *RunView) {
		v.Percent = percent
		v.Message = message
	})
	return r.publish(runID, "progress", map[string]any{
		"id":        runID,
		"percent":   percent,
		"message":   message,
		"timestamp": time.Now(),
	})
}

// Log publishes a log event for the run.
func (r *Registry) Log(runID, level, message string) error {
	if _, err := r.lookup(runID); err != nil {
		return err
	}
	return r.publish(runID, "log", map[string]any{
		"id":        runID,
		"level":     level,
		"message":   message,
		"timestamp": time.Now(),
	})
}

// Error marks the run as failed and publishes the error event.
func (r *Registry) Error(runID string, cause error) error {
	rn, err := r.lookup(runID)
	if err != nil {
		return err
	}
	rn.update(func(v *RunView) {
		v.Status = StatusFailed
		v.Error = cause.Error()
	})
	r.scheduleCleanup(runID)
	return r.publish(runID, "error", map[string]any{
		"id":        runID,
		"error":     cause.Error(),
		"timestamp": time.Now(),
	})
}

// Complete marks the run as completed with its result and publishes the
// completed event.
func (r *Registry) Complete(runID string, result any) error {
	rn, err := r.lookup(runID)
	if err != nil {
		return err
	}
	var created time.Time
	rn.update(func(v *RunView) {
		v.Status = StatusCompleted
		v.Result = result
		v.Percent = 100
		created = v.CreatedAt
	})
	r.scheduleCleanup(runID)
	return r.publish(runID, "completed", map[string]any{
		"id":          runID,
		"result":      result,
		"duration_ms": time.Since(created).Milliseconds(),
		"timestamp":   time.Now(),
	})
}

// Get returns a snapshot of one run.
func (r *Registry) Get(runID string) (RunView, error) {
	rn, err := r.lookup(runID)
	if err != nil {
		return RunView{}, err
	}
	return rn.snapshot(), nil
}

// List returns snapshots of every tracked run, newest first.
func (r *Registry) List() []RunView {
	var views []RunView
	r.runs.Range(func(_, value any) bool {
		views = append(views, value.(*run).snapshot())
		return true
	})
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}

func (r *Registry) lookup(runID string) (*run, error) {
	value, ok := r.runs.Load(runID)
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return value.(*run), nil
}

func (r *Registry) publish(runID, event string, payload any) error {
	if r.nats == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if err := r.nats.Publish(Subject(runID, event), data); err != nil {
		return fmt.Errorf("publish %s event: %w", event, err)
	}
	return nil
}

// scheduleCleanup drops finished runs from memory after the TTL so the
// registry cannot grow without bound.
func (r *Registry) scheduleCleanup(runID string) {
	go func() {
		time.Sleep(r.ttl)
		r.runs.Delete(runID)
	}()
}

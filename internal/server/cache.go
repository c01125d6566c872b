package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/doceval/internal/report"
)

// reloadDebounce coalesces the burst of file events a run produces while
// writing its reports into a single cache reload.
const reloadDebounce = 200 * time.Millisecond

// Cache holds the evaluation results the dashboard serves. It is loaded
// from the output directory once at startup and reloaded whenever a report
// file changes, so a running evaluation shows up without restarting the
// daemon.
type Cache struct {
	dir    string
	logger *zap.Logger

	mu       sync.RWMutex
	results  []report.SectionResult
	summary  report.Summary
	meta     *report.RunMeta
	loaded   bool
	loadedAt time.Time

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a cache over the report directory. Call Load before
// serving and Watch to keep it fresh.
func NewCache(dir string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		dir:    dir,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Load reads every report in the directory and swaps the cached state. A
// missing directory loads as empty, so the daemon can start before the
// first run.
func (c *Cache) Load() error {
	results, err := report.Load(c.dir, c.logger)
	if err != nil {
		return fmt.Errorf("loading reports: %w", err)
	}
	meta, err := report.LoadRunMeta(c.dir)
	if err != nil {
		c.logger.Warn("run metadata unreadable", zap.Error(err))
		meta = nil
	}
	summary := report.Summarize(results)

	c.mu.Lock()
	c.results = results
	c.summary = summary
	c.meta = meta
	c.loaded = true
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("report cache loaded",
		zap.String("dir", c.dir),
		zap.Int("sections", len(results)),
	)
	return nil
}

// Watch starts a file watcher on the report directory and reloads the
// cache when report files change. The directory is created if it does not
// exist yet.
func (c *Cache) Watch() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating report watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching report directory: %w", err)
	}
	c.watcher = watcher

	go c.processEvents()
	c.logger.Info("watching report directory", zap.String("dir", c.dir))
	return nil
}

// Close stops the watcher. Safe to call more than once and without a
// preceding Watch.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.watcher != nil {
			c.watcher.Close()
		}
	})
}

func (c *Cache) processEvents() {
	debounce := time.NewTimer(reloadDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-c.stop:
			return

		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if !reportFileEvent(event) {
				continue
			}
			debounce.Reset(reloadDebounce)

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("report watcher error", zap.Error(err))

		case <-debounce.C:
			if err := c.Load(); err != nil {
				c.logger.Error("report cache reload failed", zap.Error(err))
			}
		}
	}
}

// reportFileEvent reports whether the event touches a file the cache reads.
// The merged CSV is derived from the per-section files, so only those and
// the run metadata trigger a reload.
func reportFileEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	return strings.HasSuffix(name, "_eval.csv") || name == report.RunMetaFileName
}

// Ready reports whether the first load has completed.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Results returns the cached section results.
func (c *Cache) Results() []report.SectionResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.results
}

// Section returns all cached results for one section number.
func (c *Cache) Section(number int) []report.SectionResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []report.SectionResult
	for _, r := range c.results {
		if r.Number == number {
			matched = append(matched, r)
		}
	}
	return matched
}

// Summary returns the cached dashboard summary.
func (c *Cache) Summary() report.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary
}

// Meta returns the cached run metadata, nil when no run has written any.
func (c *Cache) Meta() *report.RunMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

// LoadedAt returns when the cache last loaded.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

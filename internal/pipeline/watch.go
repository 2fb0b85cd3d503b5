package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"dataingest/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// RunFunc runs the pipeline once.
type RunFunc func(ctx context.Context) error

// Watcher re-runs the pipeline after params.yaml changes.
// It watches the parent directory so that editors which save by rename are seen.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	target      string // cleaned absolute path of params.yaml
	dir         string
	run         RunFunc
	log         *logging.Logger
	debounceDur time.Duration
	pendingAt   time.Time // zero when no change is waiting
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Runs          int
	Failures      int
	Errors        int
	LastEventTime time.Time
	LastEventType string
	LastRunError  string
}

// NewWatcher creates a watcher for paramsPath that calls run after each settled change.
func NewWatcher(paramsPath string, run RunFunc, log *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(paramsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", paramsPath, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		target:      filepath.Clean(abs),
		dir:         filepath.Dir(abs),
		run:         run,
		log:         log,
		debounceDur: 500 * time.Millisecond, // editors write several times per save
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// SetDebounce changes how long a change must settle before the pipeline runs.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceDur = d
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		_ = w.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.log.Info("Watching %s for changes", w.target)

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("Error closing watcher: %v", err)
	}
	w.log.Debug("Watcher stopped")
}

// Done is closed when the loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Watcher context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-tick.C:
			if w.settled() {
				w.runOnce(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.target {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	default:
		return
	}
	w.log.Debug("%s event for %s", eventType, event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventType = eventType
	// A removed file is waited for; the following create triggers the run.
	if eventType == "delete" || eventType == "rename" {
		return
	}
	w.pendingAt = time.Now()
}

// settled reports whether a pending change has been quiet for the debounce window,
// clearing it if so.
func (w *Watcher) settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pendingAt.IsZero() || time.Since(w.pendingAt) < w.debounceDur {
		return false
	}
	w.pendingAt = time.Time{}
	return true
}

func (w *Watcher) runOnce(ctx context.Context) {
	w.log.Info("%s changed, re-running data ingestion", w.target)
	err := w.run(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Runs++
	if err != nil {
		w.stats.Failures++
		w.stats.LastRunError = err.Error()
	} else {
		w.stats.LastRunError = ""
	}
}

package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

const defaultDebounce = 5 * time.Second

// Watcher enqueues a sweep task when PDFs in the corpus directory change.
// Bursts of events (a copy of many files, an editor save) collapse into one
// task fired after the directory has been quiet for the debounce period.
type Watcher struct {
	dir      string
	queue    driven.TaskQueue
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherConfig holds configuration for the directory watcher.
type WatcherConfig struct {
	Dir       string
	TaskQueue driven.TaskQueue
	Debounce  time.Duration // Quiet period before enqueuing (default: 5s)
	Logger    *slog.Logger
}

// NewWatcher creates a new directory watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		dir:      cfg.Dir,
		queue:    cfg.TaskQueue,
		debounce: debounce,
		logger:   logger,
	}
}

// Start begins watching. It returns once the watch is registered.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.watcher = fw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("watcher started", "dir", w.dir, "debounce", w.debounce)
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	_ = w.watcher.Close()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// fire is nil while no change is pending
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isRelevant(event) {
				continue
			}
			w.logger.Debug("corpus change", "file", filepath.Base(event.Name), "op", event.Op.String())
			fire = time.After(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-fire:
			fire = nil
			w.enqueue(ctx)
		}
	}
}

func (w *Watcher) enqueue(ctx context.Context) {
	task := domain.NewSweepTask(domain.TriggerWatcher)
	if err := w.queue.Enqueue(ctx, task); err != nil {
		w.logger.Error("failed to enqueue sweep", "error", err)
		return
	}
	w.logger.Info("sweep enqueued", "task_id", task.ID, "trigger", task.Trigger)
}

// isRelevant reports whether an event can change the set of eligible documents.
// Chmod never does.
func isRelevant(event fsnotify.Event) bool {
	if !isEligible(filepath.Base(event.Name)) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
)

// Trigger is a background source of tasks started and stopped with the worker,
// such as the interval scheduler or the directory watcher.
type Trigger interface {
	Start(ctx context.Context) error
	Stop()
}

// Worker processes tasks from the task queue.
// A single processing loop runs sweeps and rebuilds one at a time, so the
// vector store only ever has one writer per worker.
type Worker struct {
	taskQueue driven.TaskQueue
	ingestion driving.IngestionService
	triggers  []Trigger
	logger    *slog.Logger

	dequeueTimeout int // seconds
	errorBackoff   time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Ingestion      driving.IngestionService
	Triggers       []Trigger // Optional: scheduler, watcher
	Logger         *slog.Logger
	DequeueTimeout int           // Seconds to wait for a task before checking again
	ErrorBackoff   time.Duration // Pause after a dequeue error (default: 1s)
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		ingestion:      cfg.Ingestion,
		triggers:       cfg.Triggers,
		logger:         logger,
		dequeueTimeout: dequeueTimeout,
		errorBackoff:   backoff,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting", "dequeue_timeout", w.dequeueTimeout)

	for _, t := range w.triggers {
		if err := t.Start(ctx); err != nil {
			w.logger.Error("failed to start trigger", "error", err)
		}
	}

	go func() {
		defer close(w.doneCh)
		w.processLoop(ctx)
	}()

	return nil
}

// Stop gracefully stops the worker. A task in progress finishes first.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	for _, t := range w.triggers {
		t.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop.
func (w *Worker) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			w.logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("failed to dequeue task", "error", err)
			select {
			case <-time.After(w.errorBackoff):
			case <-ctx.Done():
			case <-w.stopCh:
			}
			continue
		}

		if task == nil {
			continue
		}

		w.processTask(ctx, task)
	}
}

// processTask runs a single task and settles it on the queue.
func (w *Worker) processTask(ctx context.Context, task *domain.Task) {
	logger := w.logger.With("task_id", task.ID, "task_type", task.Type, "trigger", task.Trigger, "attempt", task.Attempts)
	logger.Info("processing task")

	startTime := time.Now()
	err := w.handle(ctx, task, logger)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed", "duration", duration, "error", err)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handle dispatches by task type. Per-document failures inside a sweep do not
// fail the task; only a sweep that could not run or was aborted does.
func (w *Worker) handle(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	var (
		result *domain.SweepResult
		err    error
	)

	switch task.Type {
	case domain.TaskTypeSweep:
		result, err = w.ingestion.Sweep(ctx)
	case domain.TaskTypeRebuild:
		result, err = w.ingestion.Rebuild(ctx)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}

	if errors.Is(err, domain.ErrSweepInProgress) {
		// another instance is already sweeping; this task is redundant
		logger.Info("sweep already running elsewhere, skipping task")
		return nil
	}
	if err != nil {
		return err
	}
	if result != nil && !result.Success {
		return fmt.Errorf("sweep failed: %s", result.Error)
	}

	if result != nil && result.Stats.DocumentsFailed > 0 {
		logger.Warn("some documents failed",
			"processed", result.Stats.DocumentsProcessed,
			"failed", result.Stats.DocumentsFailed,
		)
	}
	return nil
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}

package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
)

// Ensure Scheduler implements the driving port
var _ driving.Scheduler = (*Scheduler)(nil)

// SchedulerLockName is the distributed lock taken around each scheduling cycle.
const SchedulerLockName = "scheduler"

// Scheduler enqueues a sweep task every interval.
// It runs on worker nodes; the worker executes the tasks.
//
// For multi-worker deployments, configure a DistributedLock to prevent
// duplicate task enqueuing across instances.
type Scheduler struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	// Internal state
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	interval   time.Duration
	runOnStart bool

	// Lock configuration
	lockTTL time.Duration
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	TaskQueue  driven.TaskQueue
	Lock       driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger     *slog.Logger
	Interval   time.Duration // How often to enqueue a sweep (default: 1h)
	LockTTL    time.Duration // TTL for the distributed lock (default: half the interval)
	RunOnStart bool          // Enqueue a sweep as soon as the scheduler starts
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = interval / 2
	}

	return &Scheduler{
		taskQueue:  cfg.TaskQueue,
		lock:       cfg.Lock,
		logger:     logger,
		interval:   interval,
		lockTTL:    lockTTL,
		runOnStart: cfg.RunOnStart,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.enqueueSweep(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.enqueueSweep(ctx)
		}
	}
}

// enqueueSweep enqueues one sweep task.
// If a distributed lock is configured, only the instance holding it enqueues.
// The lock is left to expire so other instances skip the rest of the interval.
func (s *Scheduler) enqueueSweep(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, SchedulerLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			return
		}
		if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		}
	}

	task := domain.NewSweepTask(domain.TriggerScheduler)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		s.logger.Error("failed to enqueue scheduled sweep", "error", err)
		return
	}

	s.logger.Info("enqueued scheduled sweep", "task_id", task.ID)
}

// TriggerNow immediately enqueues a task of the given type.
func (s *Scheduler) TriggerNow(ctx context.Context, taskType domain.TaskType, trigger domain.TaskTrigger) (*domain.Task, error) {
	task := domain.NewTask(taskType, trigger)

	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered task",
		"task_id", task.ID,
		"task_type", task.Type,
		"trigger", task.Trigger,
	)

	return task, nil
}

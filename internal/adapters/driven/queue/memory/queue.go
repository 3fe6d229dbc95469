package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// pollInterval bounds how late a delayed retry can be picked up
const pollInterval = 250 * time.Millisecond

// Queue is an in-process TaskQueue for single-instance deployments.
// Tasks are delivered in enqueue order once their ScheduledFor has passed.
type Queue struct {
	mu      sync.Mutex
	pending []*domain.Task
	tasks   map[string]*domain.Task
	notify  chan struct{}
	closed  bool
}

// NewQueue creates an empty in-process queue.
func NewQueue() *Queue {
	return &Queue{
		tasks:  make(map[string]*domain.Task),
		notify: make(chan struct{}, 1),
	}
}

// Enqueue adds a task for processing.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("queue closed")
	}
	q.pending = append(q.pending, task)
	q.tasks[task.ID] = task
	q.mu.Unlock()

	q.wake()
	return nil
}

// DequeueWithTimeout waits up to timeout seconds for a ready task.
// Returns nil, nil on timeout or cancellation.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	for {
		if task := q.take(); task != nil {
			return task, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(min(wait, pollInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (q *Queue) take() *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, task := range q.pending {
		if task.IsReady() {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			task.MarkProcessing()
			return task
		}
	}
	return nil
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Ack marks a claimed task as completed.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	task.MarkCompleted()
	return nil
}

// Nack requeues the task with backoff, or fails it when out of attempts.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	task, ok := q.tasks[taskID]
	if !ok {
		q.mu.Unlock()
		return domain.ErrNotFound
	}

	if !task.CanRetry() {
		task.MarkFailed(reason)
		q.mu.Unlock()
		return nil
	}
	task.Retry(reason)
	q.pending = append(q.pending, task)
	q.mu.Unlock()

	q.wake()
	return nil
}

// GetTask returns a snapshot of the task.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	snapshot := *task
	return &snapshot, nil
}

// Ping always succeeds.
func (q *Queue) Ping(ctx context.Context) error {
	return nil
}

// Close stops accepting new tasks.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

package driven

import (
	"context"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
)

// TaskQueue carries sweep and rebuild tasks to the worker.
// Implementations use Redis (multi-instance) or an in-process queue.
type TaskQueue interface {
	// Enqueue adds a task for processing.
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout claims the next ready task, waiting up to timeout seconds.
	// Returns nil, nil when nothing arrived in time.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a claimed task as completed.
	Ack(ctx context.Context, taskID string) error

	// Nack returns a claimed task for retry with backoff,
	// or marks it failed when its attempts are used up.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID (for status checking).
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

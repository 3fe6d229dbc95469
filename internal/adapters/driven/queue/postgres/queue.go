package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Ensure Queue implements TaskQueue
var _ driven.TaskQueue = (*Queue)(nil)

// pollInterval is how often DequeueWithTimeout re-checks an empty table
const pollInterval = time.Second

const taskColumns = `id, type, trigger, status, attempts, max_attempts, error,
	created_at, updated_at, started_at, completed_at, scheduled_for`

// Queue implements TaskQueue using PostgreSQL with SKIP LOCKED for reliable task processing.
// Used when the vector store runs on PostgreSQL and Redis is not configured.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a new PostgreSQL-backed task queue.
// Assumes the tasks table exists (see the postgres adapter schema).
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue adds a task to the queue
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		task.ID,
		task.Type,
		task.Trigger,
		task.Status,
		task.Attempts,
		task.MaxAttempts,
		task.Error,
		task.CreatedAt,
		task.UpdatedAt,
		nullTime(task.StartedAt),
		nullTime(task.CompletedAt),
		task.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// DequeueWithTimeout claims the next ready task, polling until timeout seconds pass.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	for {
		task, err := q.dequeue(ctx)
		if err != nil || task != nil {
			return task, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}
		if wait > pollInterval {
			wait = pollInterval
		}

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(wait):
		}
	}
}

// dequeue selects and marks one ready task with SELECT FOR UPDATE SKIP LOCKED,
// so concurrent workers never receive the same task.
func (q *Queue) dequeue(ctx context.Context) (*domain.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = $1
		  AND scheduled_for <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, domain.TaskStatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}

	task.MarkProcessing()
	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, started_at = $2, updated_at = $3, attempts = $4
		WHERE id = $5
	`,
		task.Status,
		task.StartedAt,
		task.UpdatedAt,
		task.Attempts,
		task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return task, nil
}

// Ack marks a task as completed
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	now := time.Now()
	result, err := q.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, completed_at = $2, updated_at = $3, error = ''
		WHERE id = $4
	`,
		domain.TaskStatusCompleted,
		now,
		now,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Nack marks a task as failed, scheduling a retry while attempts remain
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CanRetry() {
		task.Retry(reason)
	} else {
		task.MarkFailed(reason)
	}

	_, err = q.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1, error = $2, updated_at = $3, scheduled_for = $4
		WHERE id = $5
	`,
		task.Status,
		task.Error,
		task.UpdatedAt,
		task.ScheduledFor,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := scanTask(q.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// Ping checks database connectivity
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op for the Postgres queue (db connection managed externally)
func (q *Queue) Close() error {
	return nil
}

func scanTask(row *sql.Row) (*domain.Task, error) {
	var task domain.Task
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.Type,
		&task.Trigger,
		&task.Status,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&completedAt,
		&task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

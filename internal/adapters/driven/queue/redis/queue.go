package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

const (
	defaultPrefix  = "factcheck:"
	consumerPrefix = "worker-"

	// taskTTL bounds how long task records outlive their processing
	taskTTL = 24 * time.Hour

	// claimTimeout is how long a delivered task may stay unacknowledged
	// before another worker claims it
	claimTimeout = 5 * time.Minute
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue using a Redis Stream with one consumer group.
// Task records live in plain keys; the stream only carries task ids.
// Delayed retries wait in a sorted set until they are due.
type Queue struct {
	client       *redis.Client
	consumerName string

	stream    string
	group     string
	scheduled string
	taskKey   string
}

// Config configures the Redis queue.
type Config struct {
	// Prefix namespaces every key (default "factcheck:")
	Prefix string

	// ConsumerName must be unique per worker instance
	ConsumerName string
}

// NewQueue creates a Redis-backed task queue and its consumer group.
func NewQueue(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = consumerPrefix + uuid.NewString()
	}

	q := &Queue{
		client:       client,
		consumerName: consumer,
		stream:       prefix + "tasks",
		group:        prefix + "workers",
		scheduled:    prefix + "scheduled",
		taskKey:      prefix + "task:",
	}

	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return q, nil
}

// Enqueue stores the task and publishes it, or schedules it when delayed.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, q.taskKey+task.ID, data, taskTTL)
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, q.scheduled, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		pipe.XAdd(ctx, q.publishArgs(task))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout claims the next task, blocking up to timeout seconds.
// A zero timeout polls once without blocking.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// best effort; a failed promotion is retried on the next call
	_ = q.promoteScheduledTasks(ctx)

	if task, err := q.claimAbandonedTask(ctx); err == nil && task != nil {
		return task, nil
	}

	block := time.Duration(timeout) * time.Second
	if timeout <= 0 {
		block = -1
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumerName,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.claim(ctx, streams[0].Messages[0])
}

// claim loads the task behind a delivered message and marks it processing.
// Messages without a task record are acknowledged and dropped.
func (q *Queue) claim(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, ok := msg.Values["task_id"].(string)
	if !ok {
		q.drop(ctx, msg.ID)
		return nil, nil
	}

	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			q.drop(ctx, msg.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task data: %w", err)
	}

	task.MarkProcessing()
	data, _ := json.Marshal(task)

	pipe := q.client.Pipeline()
	pipe.Set(ctx, q.taskKey+task.ID, data, taskTTL)
	pipe.Set(ctx, q.taskKey+task.ID+":msg", msg.ID, taskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to mark task processing: %w", err)
	}

	return task, nil
}

// Ack acknowledges successful completion of a task.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted()
	return q.settle(ctx, task, nil)
}

// Nack schedules a retry with backoff, or marks the task failed once its
// attempts are used up.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CanRetry() {
		task.Retry(reason)
		return q.settle(ctx, task, &redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	}

	task.MarkFailed(reason)
	return q.settle(ctx, task, nil)
}

// settle acknowledges the delivered message, stores the task and
// optionally reschedules it.
func (q *Queue) settle(ctx context.Context, task *domain.Task, retry *redis.Z) error {
	msgKey := q.taskKey + task.ID + ":msg"
	msgID, err := q.client.Get(ctx, msgKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get message ID: %w", err)
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, q.stream, q.group, msgID)
		pipe.XDel(ctx, q.stream, msgID)
	}
	pipe.Set(ctx, q.taskKey+task.ID, data, taskTTL)
	if retry != nil {
		pipe.ZAdd(ctx, q.scheduled, *retry)
	}
	pipe.Del(ctx, msgKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to settle task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns domain.ErrNotFound if unknown.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, q.taskKey+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared.
func (q *Queue) Close() error {
	return nil
}

func (q *Queue) publishArgs(task *domain.Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{
			"task_id": task.ID,
			"type":    string(task.Type),
			"trigger": string(task.Trigger),
		},
	}
}

func (q *Queue) drop(ctx context.Context, msgID string) {
	q.client.XAck(ctx, q.stream, q.group, msgID)
	q.client.XDel(ctx, q.stream, msgID)
}

// promoteScheduledTasks moves due scheduled tasks to the stream.
func (q *Queue) promoteScheduledTasks(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, q.scheduled, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	pipe := q.client.Pipeline()
	for _, taskID := range due {
		pipe.ZRem(ctx, q.scheduled, taskID)

		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			continue
		}
		pipe.XAdd(ctx, q.publishArgs(task))
	}

	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandonedTask takes over a message another worker left unacknowledged.
func (q *Queue) claimAbandonedTask(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   claimTimeout,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   q.stream,
			Group:    q.group,
			Consumer: q.consumerName,
			MinIdle:  claimTimeout,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		task, err := q.claim(ctx, claimed[0])
		if err != nil || task == nil {
			continue
		}
		return task, nil
	}

	return nil, nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeSweep runs one incremental ingestion sweep
	TaskTypeSweep TaskType = "sweep"
	// TaskTypeRebuild clears the corpus and fingerprints, then sweeps
	TaskTypeRebuild TaskType = "rebuild"
)

// TaskTrigger records what caused a task to be enqueued
type TaskTrigger string

const (
	TriggerScheduler TaskTrigger = "scheduler"
	TriggerWatcher   TaskTrigger = "watcher"
	TriggerAPI       TaskTrigger = "api"
	TriggerCLI       TaskTrigger = "cli"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by the worker
type Task struct {
	ID           string      `json:"id"`
	Type         TaskType    `json:"type"`
	Trigger      TaskTrigger `json:"trigger"`
	Status       TaskStatus  `json:"status"`
	Attempts     int         `json:"attempts"`
	MaxAttempts  int         `json:"max_attempts"`
	Error        string      `json:"error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	ScheduledFor time.Time   `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, trigger TaskTrigger) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Trigger:      trigger,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewSweepTask creates a task for one incremental sweep
func NewSweepTask(trigger TaskTrigger) *Task {
	return NewTask(TaskTypeSweep, trigger)
}

// NewRebuildTask creates a task that rebuilds the corpus from scratch
func NewRebuildTask(trigger TaskTrigger) *Task {
	return NewTask(TaskTypeRebuild, trigger)
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && !time.Now().Before(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// Exponential backoff: 1s, 2s, 4s, 8s, etc.
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

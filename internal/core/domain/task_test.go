package domain

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Error("expected non-empty ID")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	// Base64 URL encoding of 16 bytes = 22 chars
	if len(id1) != 22 {
		t.Errorf("expected ID length 22, got %d", len(id1))
	}
}

func TestNewSweepTask(t *testing.T) {
	task := NewSweepTask(TriggerScheduler)

	if task.ID == "" {
		t.Error("expected non-empty ID")
	}
	if task.Type != TaskTypeSweep {
		t.Errorf("expected type %s, got %s", TaskTypeSweep, task.Type)
	}
	if task.Trigger != TriggerScheduler {
		t.Errorf("expected trigger %s, got %s", TriggerScheduler, task.Trigger)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("expected status %s, got %s", TaskStatusPending, task.Status)
	}
	if task.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", task.MaxAttempts)
	}
	if task.CreatedAt.IsZero() || task.ScheduledFor.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if !task.IsReady() {
		t.Error("expected new task to be ready")
	}
}

func TestNewRebuildTask(t *testing.T) {
	task := NewRebuildTask(TriggerAPI)
	if task.Type != TaskTypeRebuild {
		t.Errorf("expected type %s, got %s", TaskTypeRebuild, task.Type)
	}
	if task.Trigger != TriggerAPI {
		t.Errorf("expected trigger %s, got %s", TriggerAPI, task.Trigger)
	}
}

func TestTask_CanRetry(t *testing.T) {
	tests := []struct {
		name        string
		attempts    int
		maxAttempts int
		expected    bool
	}{
		{"no attempts yet", 0, 3, true},
		{"two attempts", 2, 3, true},
		{"max attempts reached", 3, 3, false},
		{"over max attempts", 4, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Attempts: tt.attempts, MaxAttempts: tt.maxAttempts}
			if got := task.CanRetry(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTask_IsReady(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name         string
		status       TaskStatus
		scheduledFor time.Time
		expected     bool
	}{
		{"pending and past scheduled", TaskStatusPending, past, true},
		{"pending and future scheduled", TaskStatusPending, future, false},
		{"processing", TaskStatusProcessing, past, false},
		{"completed", TaskStatusCompleted, past, false},
		{"failed", TaskStatusFailed, past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Status: tt.status, ScheduledFor: tt.scheduledFor}
			if got := task.IsReady(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTask_Lifecycle(t *testing.T) {
	task := NewSweepTask(TriggerCLI)

	task.MarkProcessing()
	if task.Status != TaskStatusProcessing {
		t.Errorf("expected status %s, got %s", TaskStatusProcessing, task.Status)
	}
	if task.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
	if task.Attempts != 1 {
		t.Errorf("expected attempts 1, got %d", task.Attempts)
	}

	task.Error = "transient"
	task.MarkCompleted()
	if task.Status != TaskStatusCompleted {
		t.Errorf("expected status %s, got %s", TaskStatusCompleted, task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if task.Error != "" {
		t.Error("expected Error to be cleared")
	}
}

func TestTask_MarkFailed(t *testing.T) {
	task := NewSweepTask(TriggerWatcher)
	task.MarkFailed("boom")

	if task.Status != TaskStatusFailed {
		t.Errorf("expected status %s, got %s", TaskStatusFailed, task.Status)
	}
	if task.Error != "boom" {
		t.Errorf("expected error boom, got %s", task.Error)
	}
}

func TestTask_Retry_ExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempts        int
		expectedBackoff time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{10, 5 * time.Minute}, // capped
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			task := NewSweepTask(TriggerScheduler)
			task.Attempts = tt.attempts
			before := time.Now()

			task.Retry("error")

			if task.Status != TaskStatusPending {
				t.Errorf("expected status %s, got %s", TaskStatusPending, task.Status)
			}
			expectedMin := before.Add(tt.expectedBackoff)
			expectedMax := before.Add(tt.expectedBackoff + time.Second)
			if task.ScheduledFor.Before(expectedMin) || task.ScheduledFor.After(expectedMax) {
				t.Errorf("attempts=%d: expected ScheduledFor between %v and %v, got %v",
					tt.attempts, expectedMin, expectedMax, task.ScheduledFor)
			}
		})
	}
}

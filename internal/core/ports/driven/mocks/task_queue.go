package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-factcheck/internal/core/domain"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var _ driven.TaskQueue = (*MockTaskQueue)(nil)

// MockTaskQueue is a FIFO task queue without blocking dequeue
type MockTaskQueue struct {
	mu      sync.Mutex
	pending []*domain.Task
	tasks   map[string]*domain.Task

	acked  []string
	nacked []string

	EnqueueErr error
	PingErr    error
}

// NewMockTaskQueue creates an empty queue
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{tasks: make(map[string]*domain.Task)}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.pending = append(m.pending, task)
	m.tasks[task.ID] = task
	return nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, task := range m.pending {
		if task.IsReady() {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			task.MarkProcessing()
			return task, nil
		}
	}
	return nil, nil
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[taskID]; ok {
		task.MarkCompleted()
	}
	m.acked = append(m.acked, taskID)
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = append(m.nacked, taskID)

	task, ok := m.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.CanRetry() {
		task.Retry(reason)
		m.pending = append(m.pending, task)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

func (m *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockTaskQueue) Close() error {
	return nil
}

// Pending returns queued tasks not yet claimed
func (m *MockTaskQueue) Pending() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Task(nil), m.pending...)
}

// Acked returns acknowledged task ids
func (m *MockTaskQueue) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// Nacked returns negatively acknowledged task ids
func (m *MockTaskQueue) Nacked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nacked...)
}

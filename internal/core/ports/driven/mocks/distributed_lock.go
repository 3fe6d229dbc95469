package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// ErrMockLockNotHeld is returned by Extend for a lock this mock does not hold.
var ErrMockLockNotHeld = errors.New("mock lock not held")

// MockDistributedLock keeps named locks as expiry times in memory.
// Locks placed with SetLockHeld belong to "another instance" and can only
// be taken once they expire.
type MockDistributedLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	foreign map[string]bool

	acquired int
	released int
	extended int

	// AcquireFn replaces Acquire when set
	AcquireFn func(name string, ttl time.Duration) (bool, error)

	ExtendErr error
	PingErr   error
}

// NewMockDistributedLock creates a lock with nothing held.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		expires: make(map[string]time.Time),
		foreign: make(map[string]bool),
	}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.heldLocked(name) {
		return false, nil
	}
	m.expires[name] = time.Now().Add(ttl)
	delete(m.foreign, name)
	m.acquired++
	return true, nil
}

// Release drops a lock this instance holds; foreign locks are left alone.
func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expires[name]; !ok || m.foreign[name] {
		return nil
	}
	delete(m.expires, name)
	m.released++
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ExtendErr != nil {
		return m.ExtendErr
	}
	if !m.heldLocked(name) || m.foreign[name] {
		return ErrMockLockNotHeld
	}
	m.expires[name] = time.Now().Add(ttl)
	m.extended++
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return m.PingErr
}

// SetLockHeld marks name as held by another instance for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[name] = time.Now().Add(ttl)
	m.foreign[name] = true
}

// IsHeld reports whether anyone holds an unexpired lock on name.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// Counts returns how many times this instance took and gave back a lock.
func (m *MockDistributedLock) Counts() (acquired, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}

// Extensions returns how many successful Extend calls were made.
func (m *MockDistributedLock) Extensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extended
}

func (m *MockDistributedLock) heldLocked(name string) bool {
	expiry, ok := m.expires[name]
	return ok && time.Now().Before(expiry)
}

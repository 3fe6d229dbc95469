package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates sweeps across service instances.
// The in-process corpus gate serializes work inside one process; this lock
// stops two processes sweeping the same directory into the same store.
type DistributedLock interface {
	// Acquire attempts to take a named lock for ttl.
	// Returns false without error when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up a named lock. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a held lock.
	// Backends without TTL treat this as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultKeyPrefix namespaces every key written by the redis adapters.
const DefaultKeyPrefix = "factcheck:"

// ErrLockNotHeld is returned by Extend when this instance does not own the lock.
var ErrLockNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock with SET NX PX and owner-checked scripts,
// so one instance can never release or extend a sweep lock it lost to TTL.
type Lock struct {
	client  *redis.Client
	prefix  string
	ownerID string
}

// NewLock creates a Redis-backed distributed lock under DefaultKeyPrefix.
func NewLock(client *redis.Client) *Lock {
	return NewLockWithPrefix(client, DefaultKeyPrefix)
}

// NewLockWithPrefix creates a lock whose keys live under prefix + "lock:".
func NewLockWithPrefix(client *redis.Client, prefix string) *Lock {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Lock{
		client:  client,
		prefix:  prefix + "lock:",
		ownerID: generateOwnerID(),
	}
}

// generateOwnerID returns hostname:pid:random.
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// Acquire takes the named lock for ttl. Not reentrant.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release drops the lock if this instance still owns it.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Extend resets the TTL of a lock held by this instance.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this instance in lock values.
func (l *Lock) OwnerID() string {
	return l.ownerID
}

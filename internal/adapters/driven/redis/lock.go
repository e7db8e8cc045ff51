package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultLockPrefix namespaces lock keys
const DefaultLockPrefix = "marketsync:lock:"

// ErrLockNotHeld is returned by Extend when this instance does not own the lock
var ErrLockNotHeld = driven.ErrLockNotHeld

// LockConfig holds optional settings for Lock
type LockConfig struct {
	Prefix  string // Key prefix (default: marketsync:lock:)
	OwnerID string // Owner token (default: hostname:pid:uuid)
}

// Lock implements DistributedLock using Redis SET NX with a TTL.
// The value is the owner token, so only the acquiring instance can extend or release.
type Lock struct {
	client  redis.UniversalClient
	prefix  string
	ownerID string
}

// NewLock creates a new Redis-backed distributed lock
func NewLock(client redis.UniversalClient, cfg LockConfig) *Lock {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultLockPrefix
	}
	ownerID := cfg.OwnerID
	if ownerID == "" {
		ownerID = generateOwnerID()
	}
	return &Lock{
		client:  client,
		prefix:  prefix,
		ownerID: ownerID,
	}
}

// generateOwnerID creates a unique identifier for this lock holder.
// Format: hostname:pid:uuid
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString())
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// Acquire attempts to take the lock. It returns false if any owner, including this one, holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// releaseScript deletes the key only while it still carries our owner token
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release drops the lock if this instance owns it. Releasing an expired or
// foreign lock is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// extendScript resets the TTL only while the key carries our owner token
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend resets the TTL of a lock this instance owns
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

// OwnerID returns the token identifying this instance
func (l *Lock) OwnerID() string {
	return l.ownerID
}

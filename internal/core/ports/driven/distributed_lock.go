package driven

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotHeld is returned by Extend when this instance no longer owns the
// lock: it expired, was released, or was taken over by another instance.
var ErrLockNotHeld = errors.New("lock not held by this instance")

// DistributedLock serializes scheduled runs across worker instances.
// The scheduler takes one lock per task ("scheduler:<task>") for the length
// of a run and keeps it alive with Extend every half TTL.
type DistributedLock interface {
	// Acquire takes the named lock for ttl. It returns false without error
	// when another instance holds it. Locks are not reentrant.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock up. Releasing a lock that is not held or has
	// already expired is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a held lock to ttl from now. It returns an
	// error wrapping ErrLockNotHeld when the lock was lost, after which the
	// keep-alive stops; the running task is not interrupted. Backends without
	// expiry (session-scoped advisory locks) only confirm ownership.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks the lock backend, for worker health reporting.
	Ping(ctx context.Context) error
}

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestNewLock_Defaults(t *testing.T) {
	_, client := setupTestRedis(t)

	l1 := NewLock(client, LockConfig{})
	l2 := NewLock(client, LockConfig{})

	if l1.prefix != DefaultLockPrefix {
		t.Errorf("prefix = %q, want %q", l1.prefix, DefaultLockPrefix)
	}
	if l1.OwnerID() == "" {
		t.Error("expected non-empty owner ID")
	}
	if l1.OwnerID() == l2.OwnerID() {
		t.Errorf("expected unique owner IDs, got %s twice", l1.OwnerID())
	}
}

func TestLock_AcquireStoresOwnerWithTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client, LockConfig{OwnerID: "worker-1"})

	acquired, err := lock.Acquire(context.Background(), "scheduler:delta_sync", 30*time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire lock")
	}

	got, err := mr.Get("marketsync:lock:scheduler:delta_sync")
	if err != nil {
		t.Fatalf("lock key missing: %v", err)
	}
	if got != "worker-1" {
		t.Errorf("owner = %q, want worker-1", got)
	}
	if ttl := mr.TTL("marketsync:lock:scheduler:delta_sync"); ttl != 30*time.Minute {
		t.Errorf("ttl = %v, want 30m", ttl)
	}
}

func TestLock_MutualExclusion(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	l1 := NewLock(client, LockConfig{OwnerID: "a"})
	l2 := NewLock(client, LockConfig{OwnerID: "b"})

	if ok, _ := l1.Acquire(ctx, "job", time.Minute); !ok {
		t.Fatal("expected first acquire to succeed")
	}
	if ok, _ := l2.Acquire(ctx, "job", time.Minute); ok {
		t.Error("expected second owner to be refused")
	}
	if ok, _ := l1.Acquire(ctx, "job", time.Minute); ok {
		t.Error("lock must not be reentrant")
	}
	if ok, _ := l2.Acquire(ctx, "other", time.Minute); !ok {
		t.Error("different names must not conflict")
	}
}

func TestLock_Release(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	owner := NewLock(client, LockConfig{OwnerID: "a"})
	other := NewLock(client, LockConfig{OwnerID: "b"})

	if err := owner.Release(ctx, "job"); err != nil {
		t.Errorf("releasing an unheld lock: %v", err)
	}

	_, _ = owner.Acquire(ctx, "job", time.Minute)

	if err := other.Release(ctx, "job"); err != nil {
		t.Fatalf("foreign Release() error = %v", err)
	}
	if ok, _ := other.Acquire(ctx, "job", time.Minute); ok {
		t.Error("foreign release must not drop the lock")
	}

	if err := owner.Release(ctx, "job"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, _ := other.Acquire(ctx, "job", time.Minute); !ok {
		t.Error("expected lock to be free after owner release")
	}
}

func TestLock_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	l1 := NewLock(client, LockConfig{OwnerID: "a"})
	l2 := NewLock(client, LockConfig{OwnerID: "b"})

	_, _ = l1.Acquire(ctx, "job", time.Second)
	mr.FastForward(2 * time.Second)

	if ok, _ := l2.Acquire(ctx, "job", time.Minute); !ok {
		t.Error("expected expired lock to be acquirable")
	}
	if err := l1.Extend(ctx, "job", time.Minute); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("extending a lost lock: got %v, want ErrLockNotHeld", err)
	}
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	owner := NewLock(client, LockConfig{OwnerID: "a"})
	other := NewLock(client, LockConfig{OwnerID: "b"})

	if err := owner.Extend(ctx, "job", time.Minute); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("extending an unheld lock: got %v, want ErrLockNotHeld", err)
	}

	_, _ = owner.Acquire(ctx, "job", time.Second)

	if err := other.Extend(ctx, "job", time.Minute); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("foreign extend: got %v, want ErrLockNotHeld", err)
	}
	if err := owner.Extend(ctx, "job", 10*time.Minute); err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if ttl := mr.TTL(DefaultLockPrefix + "job"); ttl != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", ttl)
	}
}

func TestLock_CustomPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client, LockConfig{Prefix: "staging:"})

	_, _ = lock.Acquire(context.Background(), "job", time.Minute)
	if !mr.Exists("staging:job") {
		t.Error("expected key under custom prefix")
	}
}

func TestLock_Ping(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client, LockConfig{})

	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server shutdown")
	}
}

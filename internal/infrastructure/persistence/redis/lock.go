package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned when another process holds the lock.
var ErrLockHeld = errors.New("cache: lock is held by another process")

// LockStore is the subset of Cache used by Locker.
type LockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfEquals(ctx context.Context, key string, value any) (bool, error)
}

var _ LockStore = (*Cache)(nil)

// Locker provides best-effort mutual exclusion between worker instances.
// A lock expires after its TTL even if the holder never releases it.
type Locker struct {
	store LockStore
	ttl   time.Duration
}

// NewLocker creates a Locker. A non-positive ttl uses TTLDistributedLock.
func NewLocker(store LockStore, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}
	return &Locker{store: store, ttl: ttl}
}

// WithLock runs fn while holding the lock for resource.
// Returns ErrLockHeld without running fn if the lock is taken.
func (l *Locker) WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	key := LockKey(resource)
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockHeld
	}

	// The lock is released with a fresh context so cancellation of ctx
	// does not leave it held until the TTL.
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_, _ = l.store.DeleteIfEquals(releaseCtx, key, token)
	}()

	return fn(ctx)
}

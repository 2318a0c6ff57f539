package redis

import (
	"context"
	"errors"
	"time"

	"github.com/snapclash/snapclash-hub/pkg/circuitbreaker"
)

// GuardedStore wraps a Store with a circuit breaker. While the breaker is
// open reads report a miss and writes are dropped, so leaderboards are
// computed from PostgreSQL without waiting on Redis timeouts.
type GuardedStore struct {
	store   Store
	breaker *circuitbreaker.CircuitBreaker
}

var _ Store = (*GuardedStore)(nil)

// NewGuardedStore creates a GuardedStore. A nil breaker uses
// circuitbreaker.CacheBreaker without a state callback.
func NewGuardedStore(store Store, breaker *circuitbreaker.CircuitBreaker) *GuardedStore {
	if breaker == nil {
		breaker = circuitbreaker.CacheBreaker(nil, IsCacheFailure)
	}
	return &GuardedStore{store: store, breaker: breaker}
}

// IsCacheFailure reports whether err means Redis is unhealthy.
// Misses and caller cancellation do not count.
func IsCacheFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCacheMiss),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// Breaker returns the underlying breaker.
func (g *GuardedStore) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

// Get reads a key. An open breaker is reported as ErrCacheMiss.
func (g *GuardedStore) Get(ctx context.Context, key string, dest any) error {
	return g.guard(ctx, ErrCacheMiss, func(ctx context.Context) error {
		return g.store.Get(ctx, key, dest)
	})
}

// Set writes a key. Dropped silently while the breaker is open.
func (g *GuardedStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return g.guard(ctx, nil, func(ctx context.Context) error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

// Delete removes keys. Dropped silently while the breaker is open.
func (g *GuardedStore) Delete(ctx context.Context, keys ...string) error {
	return g.guard(ctx, nil, func(ctx context.Context) error {
		return g.store.Delete(ctx, keys...)
	})
}

// DeleteByPattern removes matching keys. Dropped silently while the breaker is open.
func (g *GuardedStore) DeleteByPattern(ctx context.Context, pattern string) error {
	return g.guard(ctx, nil, func(ctx context.Context) error {
		return g.store.DeleteByPattern(ctx, pattern)
	})
}

func (g *GuardedStore) guard(ctx context.Context, whenOpen error, fn func(context.Context) error) error {
	return g.breaker.ExecuteWithFallback(ctx, fn, func(error) error {
		return whenOpen
	})
}

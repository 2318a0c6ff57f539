package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/pkg/circuitbreaker"
)

func TestGuardedStore_MissDoesNotTrip(t *testing.T) {
	store := newMemStore()
	guarded := NewGuardedStore(store, nil)
	ctx := context.Background()

	for range 10 {
		var v string
		assert.ErrorIs(t, guarded.Get(ctx, "absent", &v), ErrCacheMiss)
	}
	assert.True(t, guarded.Breaker().IsClosed())
}

func TestGuardedStore_OpensAndDegradesToMiss(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("dial tcp: connection refused")
	guarded := NewGuardedStore(store, nil)
	cache := NewLeaderboardCache(guarded, LeaderboardTTLs{})
	ctx := context.Background()

	// Failures below the threshold surface to the caller.
	for range 3 {
		_, _, err := cache.GetTop(ctx)
		require.Error(t, err)
	}
	require.True(t, guarded.Breaker().IsOpen())

	// Open: reads are misses and writes are dropped.
	_, found, err := cache.GetPublic(ctx, leaderboard.RangeWeek)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.SetTop(ctx, &leaderboard.TopView{GeneratedAt: generated}))
	assert.NoError(t, cache.InvalidateAll(ctx))
}

func TestGuardedStore_PassesThroughWhenHealthy(t *testing.T) {
	store := newMemStore()
	guarded := NewGuardedStore(store, circuitbreaker.CacheBreaker(nil, IsCacheFailure))
	cache := NewLeaderboardCache(guarded, LeaderboardTTLs{})
	ctx := context.Background()

	view := &leaderboard.TopView{GeneratedAt: generated}
	require.NoError(t, cache.SetTop(ctx, view))

	got, found, err := cache.GetTop(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, generated, got.GeneratedAt)
}

func TestIsCacheFailure(t *testing.T) {
	assert.False(t, IsCacheFailure(nil))
	assert.False(t, IsCacheFailure(ErrCacheMiss))
	assert.False(t, IsCacheFailure(context.Canceled))
	assert.True(t, IsCacheFailure(context.DeadlineExceeded))
	assert.True(t, IsCacheFailure(errors.New("boom")))
}

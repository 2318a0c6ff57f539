package redis

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
)

// memStore is a JSON-encoding in-memory Store and LockStore.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Get(_ context.Context, key string, dest any) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	b, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	_, exists := m.data[key]
	m.mu.Unlock()
	if exists {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memStore) DeleteIfEquals(_ context.Context, key string, value any) (bool, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if string(m.data[key]) != string(b) {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

var generated = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestLeaderboardCache_FriendsRoundTrip(t *testing.T) {
	store := newMemStore()
	cache := NewLeaderboardCache(store, LeaderboardTTLs{})
	ctx := context.Background()

	_, found, err := cache.GetFriends(ctx, "u1", leaderboard.RangeWeek)
	require.NoError(t, err)
	assert.False(t, found)

	name := "Alice"
	view := &leaderboard.FriendView{
		UserID:      "u1",
		Range:       leaderboard.RangeWeek,
		GeneratedAt: generated,
		Rows:        []leaderboard.FriendRow{{UserID: "u2", Username: "alice", DisplayName: &name, Wins: 3}},
	}
	require.NoError(t, cache.SetFriends(ctx, view))
	assert.True(t, store.has("leaderboard:friends:u1:week"))
	assert.Equal(t, TTLFriendLeaderboard, store.ttls["leaderboard:friends:u1:week"])

	got, found, err := cache.GetFriends(ctx, "u1", leaderboard.RangeWeek)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, view, got)

	_, found, _ = cache.GetFriends(ctx, "u1", leaderboard.RangeMonth)
	assert.False(t, found)
}

func TestLeaderboardCache_PublicAndTop(t *testing.T) {
	store := newMemStore()
	cache := NewLeaderboardCache(store, LeaderboardTTLs{Public: time.Minute})
	ctx := context.Background()

	avg := 4.5
	public := &leaderboard.PublicView{
		Range:       leaderboard.RangeYear,
		GeneratedAt: generated,
		Rows:        []leaderboard.PublicRow{{ChallengeID: "c1", Title: "Sunsets", SubmissionCount: 4, AvgStars: &avg}, {ChallengeID: "c2", Title: "Photo challenge"}},
	}
	require.NoError(t, cache.SetPublic(ctx, public))
	assert.Equal(t, time.Minute, store.ttls["leaderboard:public:year"])

	gotPublic, found, err := cache.GetPublic(ctx, leaderboard.RangeYear)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, public, gotPublic)
	assert.Nil(t, gotPublic.Rows[1].AvgStars)

	top := &leaderboard.TopView{GeneratedAt: generated, Rows: []leaderboard.TopRow{{UserID: "u1", Username: "bob", AvgStars: 4.2, RatedSubmissions: 12}}}
	require.NoError(t, cache.SetTop(ctx, top))

	gotTop, found, err := cache.GetTop(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, top, gotTop)
}

func TestLeaderboardCache_StoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	cache := NewLeaderboardCache(store, LeaderboardTTLs{})

	view, found, err := cache.GetTop(context.Background())
	assert.Nil(t, view)
	assert.False(t, found)
	assert.ErrorIs(t, err, store.err)
}

func TestLeaderboardCache_Invalidate(t *testing.T) {
	store := newMemStore()
	cache := NewLeaderboardCache(store, LeaderboardTTLs{})
	ctx := context.Background()

	for _, r := range leaderboard.Ranges() {
		require.NoError(t, cache.SetFriends(ctx, &leaderboard.FriendView{UserID: "u1", Range: r}))
		require.NoError(t, cache.SetFriends(ctx, &leaderboard.FriendView{UserID: "u2", Range: r}))
	}
	require.NoError(t, cache.SetTop(ctx, &leaderboard.TopView{}))

	require.NoError(t, cache.InvalidateFriends(ctx, "u1"))
	assert.False(t, store.has("leaderboard:friends:u1:week"))
	assert.True(t, store.has("leaderboard:friends:u2:week"))

	require.NoError(t, cache.InvalidateAll(ctx))
	assert.Empty(t, store.data)
}

func TestLocker(t *testing.T) {
	store := newMemStore()
	locker := NewLocker(store, time.Second)
	ctx := context.Background()

	err := locker.WithLock(ctx, "daily", func(ctx context.Context) error {
		assert.True(t, store.has("lock:daily"))

		inner := locker.WithLock(ctx, "daily", func(context.Context) error {
			t.Fatal("lock acquired twice")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockHeld)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, store.has("lock:daily"))

	boom := errors.New("boom")
	err = locker.WithLock(ctx, "daily", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.has("lock:daily"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "leaderboard:top", LeaderboardKey("top"))
	assert.Equal(t, "leaderboard:public:month", LeaderboardKey("public", "month"))
	assert.Equal(t, "lock:warm", LockKey("warm"))
}

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD VIEW CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the subset of Cache used by LeaderboardCache.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

var _ Store = (*Cache)(nil)

// LeaderboardTTLs configures how long each view stays cached.
type LeaderboardTTLs struct {
	Friends time.Duration
	Public  time.Duration
	Top     time.Duration
}

// DefaultLeaderboardTTLs returns the default view TTLs.
func DefaultLeaderboardTTLs() LeaderboardTTLs {
	return LeaderboardTTLs{
		Friends: TTLFriendLeaderboard,
		Public:  TTLPublicLeaderboard,
		Top:     TTLTopChallengers,
	}
}

// LeaderboardCache stores precomputed leaderboard views as JSON.
//
// Keys:
//   - "leaderboard:friends:{userID}:{range}"
//   - "leaderboard:public:{range}"
//   - "leaderboard:top"
type LeaderboardCache struct {
	store Store
	ttls  LeaderboardTTLs
}

var _ leaderboard.ViewCache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a new LeaderboardCache instance.
// Zero TTLs fall back to the defaults.
func NewLeaderboardCache(store Store, ttls LeaderboardTTLs) *LeaderboardCache {
	def := DefaultLeaderboardTTLs()
	if ttls.Friends <= 0 {
		ttls.Friends = def.Friends
	}
	if ttls.Public <= 0 {
		ttls.Public = def.Public
	}
	if ttls.Top <= 0 {
		ttls.Top = def.Top
	}
	return &LeaderboardCache{store: store, ttls: ttls}
}

func friendsKey(userID string, r leaderboard.Range) string {
	return LeaderboardKey("friends", userID, r.String())
}

func publicKey(r leaderboard.Range) string {
	return LeaderboardKey("public", r.String())
}

func topKey() string {
	return LeaderboardKey("top")
}

// GetFriends returns a cached friend leaderboard.
func (l *LeaderboardCache) GetFriends(ctx context.Context, userID string, r leaderboard.Range) (*leaderboard.FriendView, bool, error) {
	var view leaderboard.FriendView
	found, err := l.get(ctx, friendsKey(userID, r), &view)
	if !found {
		return nil, false, err
	}
	return &view, true, nil
}

// SetFriends caches a friend leaderboard.
func (l *LeaderboardCache) SetFriends(ctx context.Context, view *leaderboard.FriendView) error {
	return l.store.Set(ctx, friendsKey(view.UserID, view.Range), view, l.ttls.Friends)
}

// GetPublic returns a cached public leaderboard.
func (l *LeaderboardCache) GetPublic(ctx context.Context, r leaderboard.Range) (*leaderboard.PublicView, bool, error) {
	var view leaderboard.PublicView
	found, err := l.get(ctx, publicKey(r), &view)
	if !found {
		return nil, false, err
	}
	return &view, true, nil
}

// SetPublic caches a public leaderboard.
func (l *LeaderboardCache) SetPublic(ctx context.Context, view *leaderboard.PublicView) error {
	return l.store.Set(ctx, publicKey(view.Range), view, l.ttls.Public)
}

// GetTop returns the cached top challengers view.
func (l *LeaderboardCache) GetTop(ctx context.Context) (*leaderboard.TopView, bool, error) {
	var view leaderboard.TopView
	found, err := l.get(ctx, topKey(), &view)
	if !found {
		return nil, false, err
	}
	return &view, true, nil
}

// SetTop caches the top challengers view.
func (l *LeaderboardCache) SetTop(ctx context.Context, view *leaderboard.TopView) error {
	return l.store.Set(ctx, topKey(), view, l.ttls.Top)
}

// InvalidateFriends drops every cached friend leaderboard of the user.
func (l *LeaderboardCache) InvalidateFriends(ctx context.Context, userID string) error {
	keys := make([]string, 0, len(leaderboard.Ranges()))
	for _, r := range leaderboard.Ranges() {
		keys = append(keys, friendsKey(userID, r))
	}
	return l.store.Delete(ctx, keys...)
}

// InvalidateAll drops every cached leaderboard view.
func (l *LeaderboardCache) InvalidateAll(ctx context.Context) error {
	return l.store.DeleteByPattern(ctx, PrefixLeaderboard+"*")
}

// get reports a miss as found == false with a nil error.
func (l *LeaderboardCache) get(ctx context.Context, key string, dest any) (bool, error) {
	err := l.store.Get(ctx, key, dest)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCacheMiss):
		return false, nil
	default:
		return false, err
	}
}

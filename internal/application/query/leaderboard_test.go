package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/internal/domain/social"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

const (
	alice    = "11111111-1111-4111-8111-111111111111"
	bob      = "22222222-2222-4222-8222-222222222222"
	carol    = "33333333-3333-4333-8333-333333333333"
	stranger = "44444444-4444-4444-8444-444444444444"
)

var (
	now   = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	clock = timeutil.FixedClock(now)
)

func strPtr(s string) *string { return &s }

func friendFixture() *memStore {
	m := newMemStore()
	m.challenges = []challenge.Challenge{
		{ID: "c1", Visibility: challenge.VisibilityPrivate, Status: challenge.StatusEnded, EndAt: now.Add(-24 * time.Hour)},
		{ID: "c2", Visibility: challenge.VisibilityPrivate, Status: challenge.StatusEnded, EndAt: now.Add(-48 * time.Hour)},
		{ID: "c3", Visibility: challenge.VisibilityPrivate, Status: challenge.StatusEnded, EndAt: now.Add(-20 * 24 * time.Hour)},
	}
	m.submissions = []challenge.Submission{
		{ID: "s1", ChallengeID: "c1", UserID: bob, CreatedAt: now.Add(-30 * time.Hour)},
		{ID: "s2", ChallengeID: "c1", UserID: stranger, CreatedAt: now.Add(-31 * time.Hour)},
		{ID: "s3", ChallengeID: "c2", UserID: carol, CreatedAt: now.Add(-50 * time.Hour)},
		{ID: "s4", ChallengeID: "c2", UserID: stranger, CreatedAt: now.Add(-51 * time.Hour)},
		{ID: "s5", ChallengeID: "c3", UserID: alice, CreatedAt: now.Add(-21 * 24 * time.Hour)},
	}
	m.ratings = []challenge.Rating{
		{SubmissionID: "s1", RaterID: alice, Stars: 4},
		{SubmissionID: "s2", RaterID: alice, Stars: 2},
		{SubmissionID: "s3", RaterID: alice, Stars: 1},
		{SubmissionID: "s4", RaterID: alice, Stars: 5},
	}
	m.friendships = []social.Friendship{
		{RequesterID: alice, AddresseeID: bob, Status: social.FriendshipAccepted},
		{RequesterID: carol, AddresseeID: alice, Status: social.FriendshipAccepted},
	}
	m.profiles = profile.Directory{
		bob: {ID: bob, Username: "bob", DisplayName: strPtr("Bob")},
	}
	return m
}

func TestGetFriendLeaderboard(t *testing.T) {
	store := friendFixture()
	rec := newSpyRecorder()
	h := NewGetFriendLeaderboardHandler(store, store, store, nil, clock, rec)

	view, err := h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: alice, Range: "week"})
	require.NoError(t, err)

	assert.Equal(t, leaderboard.RangeWeek, view.Range)
	assert.Equal(t, now, view.GeneratedAt)
	// c2 goes to carol: the stranger's higher rating does not count.
	require.Len(t, view.Rows, 2)
	assert.Equal(t, leaderboard.FriendRow{UserID: bob, Username: "bob", DisplayName: strPtr("Bob"), Wins: 1}, view.Rows[0])
	assert.Equal(t, carol, view.Rows[1].UserID)
	assert.Equal(t, profile.UnknownUsername, view.Rows[1].Username)
	assert.Equal(t, 1, view.Rows[1].Wins)
	assert.Equal(t, 1, rec.queries["GetFriendLeaderboard"])
}

func TestGetFriendLeaderboard_YearIncludesOwnWins(t *testing.T) {
	store := friendFixture()
	h := NewGetFriendLeaderboardHandler(store, store, store, nil, clock, nil)

	view, err := h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: alice, Range: "year"})
	require.NoError(t, err)

	require.Len(t, view.Rows, 3)
	for _, row := range view.Rows {
		assert.Equal(t, 1, row.Wins)
		assert.NotEqual(t, stranger, row.UserID)
	}
	assert.Equal(t, "bob", view.Rows[0].Username)
	assert.Equal(t, profile.UnknownUsername, view.Rows[1].Username)
}

// gatedFriends blocks ListAcceptedFriendIDs until release is closed or the
// call context ends.
type gatedFriends struct {
	*memStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedFriends) ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return g.memStore.ListAcceptedFriendIDs(ctx, userID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGetFriendLeaderboard_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store := friendFixture()
	friends := &gatedFriends{memStore: store, entered: make(chan struct{}), release: make(chan struct{})}
	h := NewGetFriendLeaderboardHandler(store, friends, store, nil, clock, nil)
	q := GetFriendLeaderboardQuery{UserID: alice, Range: "week"}

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := h.Handle(ctx1, q)
		first <- err
	}()
	<-friends.entered

	type result struct {
		view *leaderboard.FriendView
		err  error
	}
	second := make(chan result, 1)
	go func() {
		view, err := h.Handle(context.Background(), q)
		second <- result{view, err}
	}()

	cancel1()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the shared build")
	}

	close(friends.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		require.Len(t, res.view.Rows, 2)
		assert.Equal(t, bob, res.view.Rows[0].UserID)
	case <-time.After(time.Second):
		t.Fatal("second caller did not receive the shared build")
	}
}

func TestGetFriendLeaderboard_CacheRoundTrip(t *testing.T) {
	store := friendFixture()
	cache := newMemCache()
	rec := newSpyRecorder()
	h := NewGetFriendLeaderboardHandler(store, store, store, cache, clock, rec)

	first, err := h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: alice})
	require.NoError(t, err)
	calls := store.count("ListChallenges")

	second, err := h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: alice})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, calls, store.count("ListChallenges"))
	assert.Equal(t, 1, rec.hits["friends"])
	assert.Equal(t, 1, rec.misses["friends"])
}

func TestGetFriendLeaderboard_Errors(t *testing.T) {
	store := friendFixture()
	h := NewGetFriendLeaderboardHandler(store, store, store, nil, clock, nil)

	_, err := h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: "not-a-uuid"})
	assert.True(t, shared.IsValidation(err))

	store.failOn = "ListAcceptedFriendIDs"
	_, err = h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: alice})
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestGetFriendLeaderboard_MalformedRatingsFailFast(t *testing.T) {
	store := friendFixture()
	store.ratings = append(store.ratings, challenge.Rating{SubmissionID: "s1", RaterID: carol, Stars: 9})
	h := NewGetFriendLeaderboardHandler(store, store, store, nil, clock, nil)

	_, err := h.Handle(context.Background(), GetFriendLeaderboardQuery{UserID: alice})
	assert.ErrorIs(t, err, shared.ErrStarsOutOfRange)
}

func TestGetPublicLeaderboard(t *testing.T) {
	store := newMemStore()
	store.challenges = []challenge.Challenge{
		{ID: "p1", Visibility: challenge.VisibilityPublic, Status: challenge.StatusActive, CreatedAt: now.Add(-time.Hour), PromptText: "Sunset"},
		{ID: "p2", Visibility: challenge.VisibilityPublic, Status: challenge.StatusEnded, CreatedAt: now.Add(-2 * time.Hour), TemplateText: "Shadows"},
		{ID: "draft", Visibility: challenge.VisibilityPublic, Status: challenge.StatusDraft, CreatedAt: now},
		{ID: "old", Visibility: challenge.VisibilityPublic, Status: challenge.StatusActive, CreatedAt: now.Add(-40 * 24 * time.Hour)},
	}
	store.submissions = []challenge.Submission{
		{ID: "a", ChallengeID: "p1", UserID: alice},
		{ID: "b", ChallengeID: "p2", UserID: alice},
		{ID: "c", ChallengeID: "p2", UserID: bob},
		{ID: "d", ChallengeID: "old", UserID: bob},
		{ID: "e", ChallengeID: "old", UserID: carol},
		{ID: "f", ChallengeID: "old", UserID: alice},
	}
	store.ratings = []challenge.Rating{{SubmissionID: "a", RaterID: bob, Stars: 5}}

	cache := newMemCache()
	h := NewGetPublicLeaderboardHandler(store, cache, clock, nil, 10)

	view, err := h.Handle(context.Background(), GetPublicLeaderboardQuery{Range: "month"})
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "p2", view.Rows[0].ChallengeID)
	assert.Equal(t, "Shadows", view.Rows[0].Title)
	assert.Nil(t, view.Rows[0].AvgStars)
	assert.Equal(t, "Sunset", view.Rows[1].Title)
	assert.Equal(t, 5.0, *view.Rows[1].AvgStars)

	cached, found, err := cache.GetPublic(context.Background(), leaderboard.RangeMonth)
	require.NoError(t, err)
	require.True(t, found)
	assert.Same(t, view, cached)

	// Unknown range falls back to week.
	weekView, err := h.Handle(context.Background(), GetPublicLeaderboardQuery{Range: "fortnight", SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, leaderboard.RangeWeek, weekView.Range)
}

func TestGetPublicLeaderboard_NoSubmissions(t *testing.T) {
	store := newMemStore()
	store.challenges = []challenge.Challenge{
		{ID: "p1", Visibility: challenge.VisibilityPublic, Status: challenge.StatusActive, CreatedAt: now},
	}
	h := NewGetPublicLeaderboardHandler(store, nil, clock, nil, 0)

	view, err := h.Handle(context.Background(), GetPublicLeaderboardQuery{})
	require.NoError(t, err)
	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
}

func TestGetTopChallengers(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		store.submissions = append(store.submissions,
			challenge.Submission{ID: "al-" + id, ChallengeID: "c", UserID: alice},
			challenge.Submission{ID: "bo-" + id, ChallengeID: "c", UserID: bob},
		)
		store.ratings = append(store.ratings,
			challenge.Rating{SubmissionID: "al-" + id, RaterID: carol, Stars: 4},
		)
		if i < 9 {
			store.ratings = append(store.ratings,
				challenge.Rating{SubmissionID: "bo-" + id, RaterID: carol, Stars: 5},
			)
		}
	}
	store.profiles = profile.Directory{alice: {ID: alice, Username: "alice"}}

	h := NewGetTopChallengersHandler(store, store, nil, clock, nil, leaderboard.DefaultLimits())
	view, err := h.Handle(context.Background(), GetTopChallengersQuery{})
	require.NoError(t, err)

	require.Len(t, view.Rows, 1)
	assert.Equal(t, leaderboard.TopRow{UserID: alice, Username: "alice", AvgStars: 4, RatedSubmissions: 10}, view.Rows[0])
}

func TestGetTopChallengers_FetchError(t *testing.T) {
	store := newMemStore()
	store.failOn = "ListRatingsWithOwner"
	rec := newSpyRecorder()
	h := NewGetTopChallengersHandler(store, store, nil, clock, rec, leaderboard.Limits{})

	_, err := h.Handle(context.Background(), GetTopChallengersQuery{})
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, rec.errors["GetTopChallengers"])
}

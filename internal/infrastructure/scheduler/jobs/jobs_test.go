package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/application/command"
	"github.com/snapclash/snapclash-hub/internal/application/query"
	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/internal/infrastructure/persistence/redis"
	"github.com/snapclash/snapclash-hub/pkg/retry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetrier() *retry.Retrier {
	return retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(2*time.Millisecond),
		retry.WithRetryIf(shared.IsRetryable),
	)
}

type fakeCreator struct {
	calls atomic.Int32
	errs  []error
}

func (f *fakeCreator) Handle(ctx context.Context, cmd command.CreateDailyChallengeCommand) (*command.CreateDailyChallengeResult, error) {
	n := int(f.calls.Add(1))
	if n <= len(f.errs) && f.errs[n-1] != nil {
		return nil, f.errs[n-1]
	}
	return &command.CreateDailyChallengeResult{
		Challenge: challenge.Challenge{ID: "daily-1", DailyDate: "2024-06-15"},
		Created:   true,
	}, nil
}

type fakeLocker struct {
	held      bool
	resources []string
}

func (l *fakeLocker) WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	l.resources = append(l.resources, resource)
	if l.held {
		return redis.ErrLockHeld
	}
	return fn(ctx)
}

func TestCreateDailyChallengeJob_Run(t *testing.T) {
	creator := &fakeCreator{}
	locker := &fakeLocker{}
	job := NewCreateDailyChallengeJob(creator, locker, fastRetrier(), quietLogger(), CreateDailyChallengeConfig{})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int32(1), creator.calls.Load())
	assert.Equal(t, []string{"job:create_daily_challenge"}, locker.resources)
	assert.Equal(t, "create_daily_challenge", job.Name())
	assert.NotEmpty(t, job.Description())
}

func TestCreateDailyChallengeJob_SkipsWhenLockHeld(t *testing.T) {
	creator := &fakeCreator{}
	job := NewCreateDailyChallengeJob(creator, &fakeLocker{held: true}, fastRetrier(), quietLogger(), CreateDailyChallengeConfig{})

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, creator.calls.Load())
}

func TestCreateDailyChallengeJob_RetriesUnavailableStore(t *testing.T) {
	unavailable := shared.WrapError("command", "CreateDailyChallenge", shared.ErrServiceUnavailable, "db down", errors.New("dial tcp"))
	creator := &fakeCreator{errs: []error{unavailable, unavailable}}
	job := NewCreateDailyChallengeJob(creator, nil, fastRetrier(), quietLogger(), CreateDailyChallengeConfig{})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int32(3), creator.calls.Load())
}

func TestCreateDailyChallengeJob_NoTemplatesIsNotRetried(t *testing.T) {
	creator := &fakeCreator{errs: []error{shared.ErrNoActiveTemplates}}
	job := NewCreateDailyChallengeJob(creator, nil, fastRetrier(), quietLogger(), CreateDailyChallengeConfig{})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNoActiveTemplates)
	assert.Equal(t, int32(1), creator.calls.Load())
}

type fakePublic struct {
	mu     sync.Mutex
	ranges []string
	fail   string
}

func (f *fakePublic) Handle(ctx context.Context, q query.GetPublicLeaderboardQuery) (*leaderboard.PublicView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !q.SkipCache {
		return nil, errors.New("warmup must bypass the cache")
	}
	f.ranges = append(f.ranges, q.Range)
	if q.Range == f.fail {
		return nil, errors.New("boom")
	}
	return &leaderboard.PublicView{Range: leaderboard.ParseRange(q.Range)}, nil
}

type fakeTop struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTop) Handle(ctx context.Context, q query.GetTopChallengersQuery) (*leaderboard.TopView, error) {
	f.calls.Add(1)
	if !q.SkipCache {
		return nil, errors.New("warmup must bypass the cache")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &leaderboard.TopView{}, nil
}

func TestWarmLeaderboardsJob_AllViews(t *testing.T) {
	public := &fakePublic{}
	top := &fakeTop{}
	job := NewWarmLeaderboardsJob(public, top, quietLogger(), WarmLeaderboardsConfig{})

	require.NoError(t, job.Run(context.Background()))
	assert.ElementsMatch(t, []string{"week", "month", "year"}, public.ranges)
	assert.Equal(t, int32(1), top.calls.Load())
	assert.Equal(t, "warm_leaderboards", job.Name())
}

func TestWarmLeaderboardsJob_PartialFailure(t *testing.T) {
	public := &fakePublic{fail: "month"}
	top := &fakeTop{err: errors.New("timeout")}
	job := NewWarmLeaderboardsJob(public, top, quietLogger(), WarmLeaderboardsConfig{})

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public month")
	assert.Contains(t, err.Error(), "top challengers")
	assert.Len(t, public.ranges, 3)
}

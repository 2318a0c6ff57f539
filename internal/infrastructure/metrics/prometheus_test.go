package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

func TestObserveQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveQuery("GetTopChallengers", 10*time.Millisecond, nil)
	m.ObserveQuery("GetTopChallengers", 20*time.Millisecond, nil)
	m.ObserveQuery("GetTopChallengers", time.Millisecond, shared.ErrInvalidUserID)
	m.ObserveQuery("GetChallengeResults", time.Millisecond, shared.ErrChallengeNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("GetTopChallengers", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("GetTopChallengers", OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryTotal.WithLabelValues("GetChallengeResults", OutcomeNotFound)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.queryDuration))
}

func TestObserveCache(t *testing.T) {
	m := New(nil)

	m.ObserveCache("friends", true)
	m.ObserveCache("friends", false)
	m.ObserveCache("friends", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheTotal.WithLabelValues("friends", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheTotal.WithLabelValues("friends", "miss")))
}

func TestObserveJob(t *testing.T) {
	m := New(nil)

	m.ObserveJob("warm_leaderboards", time.Second, nil)
	m.ObserveJob("warm_leaderboards", time.Second, errors.New("redis down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobTotal.WithLabelValues("warm_leaderboards", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobTotal.WithLabelValues("warm_leaderboards", OutcomeError)))
	assert.Greater(t, testutil.ToFloat64(m.jobLastRun.WithLabelValues("warm_leaderboards")), 0.0)
}

func TestObserveHTTP(t *testing.T) {
	m := New(nil)

	done := m.InFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))

	m.ObserveHTTP("GET", "/api/v1/leaderboard/top", 200, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpTotal.WithLabelValues("GET", "/api/v1/leaderboard/top", "200")))
}

func TestSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeInvalid, Outcome(shared.ErrInvalidUserID))
	assert.Equal(t, OutcomeNotFound, Outcome(shared.ErrNoActiveTemplates))
	assert.Equal(t, OutcomeCorrupt, Outcome(shared.WrapError("scoring", "ValidateRatings", shared.ErrStarsOutOfRange, "malformed rating", errors.New("row 0"))))
	assert.Equal(t, OutcomeError, Outcome(errors.New("boom")))
}

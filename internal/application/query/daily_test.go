package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

func dailyFixture() *memStore {
	m := newMemStore()
	m.challenges = []challenge.Challenge{
		{ID: "today", Visibility: challenge.VisibilityPublic, Status: challenge.StatusActive, IsDaily: true, DailyDate: "2024-06-15", EndAt: now},
		{ID: "yesterday", Visibility: challenge.VisibilityPublic, Status: challenge.StatusEnded, IsDaily: true, DailyDate: "2024-06-14", PromptText: "Clouds"},
	}
	m.submissions = []challenge.Submission{
		{ID: "s1", ChallengeID: "today", UserID: alice},
		{ID: "s2", ChallengeID: "today", UserID: bob},
		{ID: "s3", ChallengeID: "yesterday", UserID: alice},
		{ID: "s4", ChallengeID: "yesterday", UserID: carol},
	}
	return m
}

func TestGetDailyChallenge_Anonymous(t *testing.T) {
	store := dailyFixture()
	h := NewGetDailyChallengeHandler(store, clock, nil)

	daily, err := h.Handle(context.Background(), GetDailyChallengeQuery{})
	require.NoError(t, err)

	assert.Equal(t, "today", daily.ID)
	assert.Equal(t, "2024-06-15", daily.Date)
	assert.Equal(t, DefaultDailyPrompt, daily.PromptText)
	assert.Equal(t, 2, daily.SubmissionCount)
	assert.Equal(t, 2, daily.ParticipantCount)
	assert.Nil(t, daily.Streak)
	assert.Nil(t, daily.Submitted)
	assert.Empty(t, daily.Badge)
}

func TestGetDailyChallenge_WithUser(t *testing.T) {
	store := dailyFixture()
	h := NewGetDailyChallengeHandler(store, clock, nil)

	daily, err := h.Handle(context.Background(), GetDailyChallengeQuery{UserID: alice})
	require.NoError(t, err)
	require.NotNil(t, daily.Streak)
	assert.Equal(t, 2, *daily.Streak)
	assert.Equal(t, "none", daily.Badge)
	require.NotNil(t, daily.Submitted)
	assert.True(t, *daily.Submitted)

	daily, err = h.Handle(context.Background(), GetDailyChallengeQuery{UserID: carol})
	require.NoError(t, err)
	assert.Equal(t, 1, *daily.Streak)
	assert.False(t, *daily.Submitted)
}

func TestGetDailyChallenge_NotFound(t *testing.T) {
	store := newMemStore()
	h := NewGetDailyChallengeHandler(store, clock, nil)

	_, err := h.Handle(context.Background(), GetDailyChallengeQuery{})
	assert.ErrorIs(t, err, shared.ErrDailyNotFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetDailyChallenge_InvalidUser(t *testing.T) {
	h := NewGetDailyChallengeHandler(newMemStore(), clock, nil)

	_, err := h.Handle(context.Background(), GetDailyChallengeQuery{UserID: "nope"})
	assert.True(t, shared.IsValidation(err))
}

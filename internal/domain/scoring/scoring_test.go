package scoring

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sub(id, challengeID, userID string, offset time.Duration) challenge.Submission {
	return challenge.Submission{ID: id, ChallengeID: challengeID, UserID: userID, CreatedAt: t0.Add(offset)}
}

func rate(submissionID string, stars int) challenge.Rating {
	return challenge.Rating{SubmissionID: submissionID, RaterID: fmt.Sprintf("r-%s-%d", submissionID, stars), Stars: stars}
}

func TestAggregate(t *testing.T) {
	idx := Aggregate([]challenge.Rating{rate("a", 4), rate("a", 0), rate("b", 5)})

	avg, ok := idx.Mean("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, avg)
	assert.Equal(t, 2, idx.Count("a"))

	_, ok = idx.Mean("missing")
	assert.False(t, ok)
	assert.Equal(t, 0.0, idx.MeanOrZero("missing"))

	total := idx.Total()
	assert.Equal(t, RatingStats{Sum: 9, Count: 3}, total)
}

func TestResolveWinners_UnratedCountsAsZero(t *testing.T) {
	subs := []challenge.Submission{
		sub("B", "c1", "bob", 0),
		sub("A", "c1", "alice", time.Minute),
	}
	winners := ResolveWinners(subs, []challenge.Rating{rate("A", 2)})

	require.Len(t, winners, 1)
	assert.Equal(t, "alice", winners["c1"].UserID)
	assert.Equal(t, 2.0, winners["c1"].AvgStars)
}

func TestResolveWinners_EarliestWinsTie(t *testing.T) {
	subs := []challenge.Submission{
		sub("late", "c1", "u2", time.Hour),
		sub("early", "c1", "u1", 0),
	}
	ratings := []challenge.Rating{rate("late", 4), rate("early", 4)}

	winners := ResolveWinners(subs, ratings)
	assert.Equal(t, "early", winners["c1"].SubmissionID)
}

func TestResolveWinners_FullTieUsesSubmissionID(t *testing.T) {
	subs := []challenge.Submission{
		sub("s2", "c1", "u2", 0),
		sub("s1", "c1", "u1", 0),
	}
	winners := ResolveWinners(subs, nil)
	assert.Equal(t, "s1", winners["c1"].SubmissionID)
	assert.Equal(t, 0.0, winners["c1"].AvgStars)
}

func TestResolveWinners_PermutationInvariantAndIdempotent(t *testing.T) {
	subs := []challenge.Submission{
		sub("a", "c1", "u1", 0),
		sub("b", "c1", "u2", time.Minute),
		sub("c", "c1", "u3", -time.Minute),
		sub("d", "c2", "u1", 0),
		sub("e", "c2", "u4", time.Second),
		sub("f", "c3", "u5", 0),
	}
	ratings := []challenge.Rating{
		rate("a", 3), rate("a", 5),
		rate("b", 4),
		rate("c", 4), rate("c", 4),
		rate("d", 1),
		rate("e", 1),
	}

	want := ResolveWinners(subs, ratings)
	assert.Equal(t, want, ResolveWinners(subs, ratings))
	assert.Equal(t, "c", want["c1"].SubmissionID)
	assert.Equal(t, "d", want["c2"].SubmissionID)
	assert.Equal(t, "f", want["c3"].SubmissionID)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		s := append([]challenge.Submission(nil), subs...)
		r := append([]challenge.Rating(nil), ratings...)
		rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		rng.Shuffle(len(r), func(i, j int) { r[i], r[j] = r[j], r[i] })
		assert.Equal(t, want, ResolveWinners(s, r))
	}
}

func TestResolveWinners_Empty(t *testing.T) {
	assert.Empty(t, ResolveWinners(nil, []challenge.Rating{rate("x", 5)}))
}

func TestCountWins(t *testing.T) {
	winners := map[string]challenge.Winner{
		"c1": {UserID: "u1"},
		"c2": {UserID: "u2"},
		"c3": {UserID: "u1"},
	}
	assert.Equal(t, 2, CountWins(winners, "u1"))
	assert.Equal(t, 0, CountWins(winners, "u9"))
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{name: "empty", dates: nil, want: 0},
		{name: "three consecutive", dates: []string{"2024-01-01", "2024-01-02", "2024-01-03"}, want: 3},
		{name: "gap", dates: []string{"2024-01-01", "2024-01-03"}, want: 1},
		{name: "unordered with duplicates", dates: []string{"2024-01-03", "2024-01-01", "2024-01-02", "2024-01-02"}, want: 3},
		{name: "only trailing run counts", dates: []string{"2024-01-01", "2024-01-02", "2024-01-05", "2024-01-06"}, want: 2},
		{name: "month boundary", dates: []string{"2024-02-28", "2024-02-29", "2024-03-01"}, want: 3},
		{name: "unparsable skipped", dates: []string{"garbage", "2024-01-01", "", "2024-01-02"}, want: 2},
		{name: "all unparsable", dates: []string{"x", "0000-00-00"}, want: 0},
		{name: "extra parts after the date are ignored", dates: []string{"2024-01-01-a", "2024-01-02"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(tt.dates))
		})
	}
}

func TestStreakActive(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02"}
	assert.True(t, StreakActive(dates, "2024-01-02"))
	assert.True(t, StreakActive(dates, "2024-01-03"))
	assert.False(t, StreakActive(dates, "2024-01-04"))
	assert.False(t, StreakActive(nil, "2024-01-04"))
	assert.False(t, StreakActive(dates, "bad"))

	// Activity does not change the streak value.
	assert.Equal(t, 2, Streak(dates))
}

func TestClassifyBadge(t *testing.T) {
	tests := []struct {
		days int
		want BadgeTier
	}{
		{0, BadgeNone},
		{6, BadgeNone},
		{7, BadgeBronze},
		{13, BadgeBronze},
		{14, BadgeSilver},
		{27, BadgeSilver},
		{28, BadgeGold},
		{49, BadgeGold},
		{50, BadgeDiamond},
		{365, BadgeDiamond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBadge(tt.days))
		})
	}
}

func TestNextBadge(t *testing.T) {
	tier, left := NextBadge(3)
	assert.Equal(t, BadgeBronze, tier)
	assert.Equal(t, 4, left)

	tier, left = NextBadge(14)
	assert.Equal(t, BadgeGold, tier)
	assert.Equal(t, 14, left)

	tier, left = NextBadge(50)
	assert.Equal(t, BadgeNone, tier)
	assert.Equal(t, 0, left)
}

func TestValidateRatings(t *testing.T) {
	assert.NoError(t, ValidateRatings([]challenge.Rating{rate("a", 0), rate("b", 5)}))

	err := ValidateRatings([]challenge.Rating{rate("a", 6)})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStarsOutOfRange)
	assert.True(t, shared.IsCorruptData(err))
	assert.False(t, shared.IsValidation(err), "bad stored rows are not the caller's fault")

	err = ValidateRatings([]challenge.Rating{{SubmissionID: "", Stars: 3}})
	assert.ErrorIs(t, err, shared.ErrEmptySubmissionID)
	assert.False(t, shared.IsValidation(err))

	err = ValidateOwnedRatings([]challenge.OwnedRating{{Rating: rate("a", -1), OwnerID: "u"}})
	assert.ErrorIs(t, err, shared.ErrCorruptData)
}

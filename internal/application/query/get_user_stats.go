package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER STATS QUERY
// Сводка пользователя: победы, средняя оценка, серия ежедневных участий и бейдж.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserStatsQuery содержит параметры запроса.
type GetUserStatsQuery struct {
	UserID string `validate:"required,uuid"`
}

// UserStatsDTO - статистика пользователя.
type UserStatsDTO struct {
	UserID string `json:"userId"`

	// Wins - победы в завершённых приватных челленджах.
	Wins int `json:"wins"`

	// AvgStars - средняя оценка всех фото пользователя, nil если оценок нет.
	AvgStars *float64 `json:"avgStars"`

	// Streak - последняя серия подряд идущих дней с участием в ежедневных челленджах.
	Streak int `json:"streak"`

	// StreakActive - серия закончилась сегодня или вчера.
	StreakActive bool `json:"streakActive"`

	Badge string `json:"badge"`

	// NextBadge и DaysToNextBadge пусты, если достигнут высший уровень.
	NextBadge       string `json:"nextBadge,omitempty"`
	DaysToNextBadge int    `json:"daysToNextBadge,omitempty"`
}

// GetUserStatsHandler обрабатывает запрос статистики пользователя.
type GetUserStatsHandler struct {
	challenges challenge.Repository
	clock      timeutil.Clock
	recorder   Recorder
}

// NewGetUserStatsHandler создаёт обработчик.
func NewGetUserStatsHandler(challenges challenge.Repository, clock timeutil.Clock, recorder Recorder) *GetUserStatsHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &GetUserStatsHandler{
		challenges: challenges,
		clock:      clock,
		recorder:   orNop(recorder),
	}
}

// Handle выполняет запрос статистики пользователя.
func (h *GetUserStatsHandler) Handle(ctx context.Context, q GetUserStatsQuery) (stats *UserStatsDTO, err error) {
	if err := validate.Struct(q); err != nil {
		return nil, validationError("GetUserStats", err)
	}

	ctx, obs := observe(ctx, h.recorder, "GetUserStats",
		attribute.String("user.id", q.UserID),
	)
	defer obs.end(ctx, &err)

	stats = &UserStatsDTO{UserID: q.UserID}

	own, err := h.challenges.ListSubmissions(ctx, challenge.SubmissionFilter{UserIDs: []string{q.UserID}})
	if err != nil {
		return nil, fetchError("GetUserStats", "submissions", err)
	}
	if len(own) == 0 {
		fillBadge(stats)
		return stats, nil
	}

	var (
		ownRatings []challenge.Rating
		entered    []challenge.Challenge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := h.challenges.ListRatings(gctx, challenge.RatingFilter{SubmissionIDs: submissionIDs(own)})
		if err != nil {
			return fetchError("GetUserStats", "ratings", err)
		}
		ownRatings = list
		return scoring.ValidateRatings(list)
	})
	g.Go(func() error {
		list, err := h.challenges.ListChallenges(gctx, challenge.ChallengeFilter{IDs: distinctChallengeIDs(own)})
		if err != nil {
			return fetchError("GetUserStats", "challenges", err)
		}
		entered = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if avg, ok := scoring.Aggregate(ownRatings).Total().Mean(); ok {
		stats.AvgStars = &avg
	}

	var (
		endedPrivate []string
		dailyDates   []string
	)
	for _, c := range entered {
		if c.Visibility == challenge.VisibilityPrivate && c.Status == challenge.StatusEnded {
			endedPrivate = append(endedPrivate, c.ID)
		}
		if c.IsDaily && c.DailyDate != "" {
			dailyDates = append(dailyDates, c.DailyDate)
		}
	}

	stats.Streak = scoring.Streak(dailyDates)
	stats.StreakActive = scoring.StreakActive(dailyDates, timeutil.Today(h.clock))
	fillBadge(stats)

	if len(endedPrivate) == 0 {
		return stats, nil
	}

	wins, err := h.countWins(ctx, q.UserID, endedPrivate)
	if err != nil {
		return nil, err
	}
	stats.Wins = wins
	return stats, nil
}

// countWins выбирает победителей среди всех участников указанных челленджей.
func (h *GetUserStatsHandler) countWins(ctx context.Context, userID string, challengeIDs []string) (int, error) {
	submissions, err := h.challenges.ListSubmissions(ctx, challenge.SubmissionFilter{ChallengeIDs: challengeIDs})
	if err != nil {
		return 0, fetchError("GetUserStats", "challenge submissions", err)
	}
	if len(submissions) == 0 {
		return 0, nil
	}

	ratings, err := h.challenges.ListRatings(ctx, challenge.RatingFilter{SubmissionIDs: submissionIDs(submissions)})
	if err != nil {
		return 0, fetchError("GetUserStats", "challenge ratings", err)
	}
	if err := scoring.ValidateRatings(ratings); err != nil {
		return 0, err
	}

	return scoring.CountWins(scoring.ResolveWinners(submissions, ratings), userID), nil
}

func fillBadge(stats *UserStatsDTO) {
	stats.Badge = string(scoring.ClassifyBadge(stats.Streak))
	if next, left := scoring.NextBadge(stats.Streak); next != scoring.BadgeNone {
		stats.NextBadge = string(next)
		stats.DaysToNextBadge = left
	}
}

func distinctChallengeIDs(submissions []challenge.Submission) []string {
	seen := make(map[string]struct{}, len(submissions))
	ids := make([]string, 0, len(submissions))
	for _, s := range submissions {
		if _, ok := seen[s.ChallengeID]; ok {
			continue
		}
		seen[s.ChallengeID] = struct{}{}
		ids = append(ids, s.ChallengeID)
	}
	return ids
}

package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
	"github.com/snapclash/snapclash-hub/pkg/logger"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PUBLIC LEADERBOARD QUERY
// Самые популярные публичные челленджи за окно.
// ══════════════════════════════════════════════════════════════════════════════

// GetPublicLeaderboardQuery содержит параметры запроса.
type GetPublicLeaderboardQuery struct {
	// Range - окно: week, month или year. Неизвестное значение даёт week.
	Range string

	// SkipCache - построить заново, минуя кеш (используется воркером).
	SkipCache bool
}

// GetPublicLeaderboardHandler обрабатывает запросы публичного лидерборда.
type GetPublicLeaderboardHandler struct {
	challenges challenge.Repository
	cache      leaderboard.ViewCache
	clock      timeutil.Clock
	recorder   Recorder
	limit      int
	group      singleflight.Group
}

// NewGetPublicLeaderboardHandler создаёт обработчик. cache и recorder могут быть nil.
func NewGetPublicLeaderboardHandler(
	challenges challenge.Repository,
	cache leaderboard.ViewCache,
	clock timeutil.Clock,
	recorder Recorder,
	limit int,
) *GetPublicLeaderboardHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if limit <= 0 {
		limit = leaderboard.DefaultTopLimit
	}
	return &GetPublicLeaderboardHandler{
		challenges: challenges,
		cache:      cache,
		clock:      clock,
		recorder:   orNop(recorder),
		limit:      limit,
	}
}

// Handle выполняет запрос публичного лидерборда.
func (h *GetPublicLeaderboardHandler) Handle(ctx context.Context, q GetPublicLeaderboardQuery) (view *leaderboard.PublicView, err error) {
	r := leaderboard.ParseRange(q.Range)

	ctx, obs := observe(ctx, h.recorder, "GetPublicLeaderboard",
		attribute.String("leaderboard.range", r.String()),
	)
	defer obs.end(ctx, &err)

	if h.cache != nil && !q.SkipCache {
		cached, found, cerr := h.cache.GetPublic(ctx, r)
		if cerr != nil {
			logger.FromContext(ctx).Warn("public leaderboard cache read failed", logger.Range(r.String()), logger.Err(cerr))
		}
		h.recorder.ObserveCache("public", found)
		if found {
			return cached, nil
		}
	}

	view, err = shareBuild(ctx, &h.group, r.String(), func(ctx context.Context) (*leaderboard.PublicView, error) {
		return h.build(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if cerr := h.cache.SetPublic(ctx, view); cerr != nil {
			logger.FromContext(ctx).Warn("public leaderboard cache write failed", logger.Range(r.String()), logger.Err(cerr))
		}
	}
	return view, nil
}

func (h *GetPublicLeaderboardHandler) build(ctx context.Context, r leaderboard.Range) (*leaderboard.PublicView, error) {
	now := h.clock.Now()
	windowStart := r.WindowStart(now)
	view := &leaderboard.PublicView{
		Range:       r,
		GeneratedAt: now,
		Rows:        []leaderboard.PublicRow{},
	}

	challenges, err := h.challenges.ListChallenges(ctx, challenge.ChallengeFilter{
		Visibility:    challenge.VisibilityPublic,
		ExcludeStatus: challenge.StatusDraft,
		CreatedAfter:  windowStart,
	})
	if err != nil {
		return nil, fetchError("GetPublicLeaderboard", "challenges", err)
	}
	if len(challenges) == 0 {
		return view, nil
	}

	submissions, err := h.challenges.ListSubmissions(ctx, challenge.SubmissionFilter{ChallengeIDs: challengeIDs(challenges)})
	if err != nil {
		return nil, fetchError("GetPublicLeaderboard", "submissions", err)
	}
	if len(submissions) == 0 {
		return view, nil
	}

	ratings, err := h.challenges.ListRatings(ctx, challenge.RatingFilter{SubmissionIDs: submissionIDs(submissions)})
	if err != nil {
		return nil, fetchError("GetPublicLeaderboard", "ratings", err)
	}
	if err := scoring.ValidateRatings(ratings); err != nil {
		return nil, err
	}

	view.Rows = leaderboard.BuildPublicLeaderboard(leaderboard.PublicInput{
		Challenges:  challenges,
		Submissions: submissions,
		Ratings:     ratings,
		WindowStart: windowStart,
	}, h.limit)
	return view, nil
}

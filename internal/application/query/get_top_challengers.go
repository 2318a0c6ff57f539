package query

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
	"github.com/snapclash/snapclash-hub/pkg/logger"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TOP CHALLENGERS QUERY
// Авторы с лучшей средней оценкой за всё время.
// ══════════════════════════════════════════════════════════════════════════════

// GetTopChallengersQuery содержит параметры запроса.
type GetTopChallengersQuery struct {
	// SkipCache - построить заново, минуя кеш (используется воркером).
	SkipCache bool
}

// GetTopChallengersHandler обрабатывает запросы рейтинга лучших участников.
type GetTopChallengersHandler struct {
	challenges challenge.Repository
	profiles   profile.Repository
	cache      leaderboard.ViewCache
	clock      timeutil.Clock
	recorder   Recorder
	limits     leaderboard.Limits
	group      singleflight.Group
}

// NewGetTopChallengersHandler создаёт обработчик. cache и recorder могут быть nil.
func NewGetTopChallengersHandler(
	challenges challenge.Repository,
	profiles profile.Repository,
	cache leaderboard.ViewCache,
	clock timeutil.Clock,
	recorder Recorder,
	limits leaderboard.Limits,
) *GetTopChallengersHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if limits.Top <= 0 {
		limits.Top = leaderboard.DefaultTopLimit
	}
	if limits.MinRatedSubmissions <= 0 {
		limits.MinRatedSubmissions = leaderboard.DefaultMinRatedSubmissions
	}
	return &GetTopChallengersHandler{
		challenges: challenges,
		profiles:   profiles,
		cache:      cache,
		clock:      clock,
		recorder:   orNop(recorder),
		limits:     limits,
	}
}

// Handle выполняет запрос рейтинга лучших участников.
func (h *GetTopChallengersHandler) Handle(ctx context.Context, q GetTopChallengersQuery) (view *leaderboard.TopView, err error) {
	ctx, obs := observe(ctx, h.recorder, "GetTopChallengers")
	defer obs.end(ctx, &err)

	if h.cache != nil && !q.SkipCache {
		cached, found, cerr := h.cache.GetTop(ctx)
		if cerr != nil {
			logger.FromContext(ctx).Warn("top challengers cache read failed", logger.Err(cerr))
		}
		h.recorder.ObserveCache("top", found)
		if found {
			return cached, nil
		}
	}

	view, err = shareBuild(ctx, &h.group, "top", h.build)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if cerr := h.cache.SetTop(ctx, view); cerr != nil {
			logger.FromContext(ctx).Warn("top challengers cache write failed", logger.Err(cerr))
		}
	}
	return view, nil
}

func (h *GetTopChallengersHandler) build(ctx context.Context) (*leaderboard.TopView, error) {
	view := &leaderboard.TopView{
		GeneratedAt: h.clock.Now(),
		Rows:        []leaderboard.TopRow{},
	}

	ratings, err := h.challenges.ListRatingsWithOwner(ctx)
	if err != nil {
		return nil, fetchError("GetTopChallengers", "ratings", err)
	}
	if err := scoring.ValidateOwnedRatings(ratings); err != nil {
		return nil, err
	}

	tallies := leaderboard.TallyChallengers(ratings, h.limits.MinRatedSubmissions)
	if len(tallies) == 0 {
		return view, nil
	}

	profiles, err := h.profiles.LookupProfiles(ctx, leaderboard.ChallengerIDs(tallies))
	if err != nil {
		return nil, fetchError("GetTopChallengers", "profiles", err)
	}

	view.Rows = leaderboard.RankChallengers(tallies, profiles, h.limits.Top)
	return view, nil
}

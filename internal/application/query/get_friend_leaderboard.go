package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/leaderboard"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
	"github.com/snapclash/snapclash-hub/internal/domain/social"
	"github.com/snapclash/snapclash-hub/pkg/logger"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET FRIEND LEADERBOARD QUERY
// Победы пользователя и его друзей в завершённых приватных челленджах за окно.
// ══════════════════════════════════════════════════════════════════════════════

// GetFriendLeaderboardQuery содержит параметры запроса.
type GetFriendLeaderboardQuery struct {
	// UserID - пользователь, для которого строится лидерборд.
	UserID string `validate:"required,uuid"`

	// Range - окно: week, month или year. Неизвестное значение даёт week.
	Range string

	// SkipCache - построить заново, минуя кеш.
	SkipCache bool
}

// GetFriendLeaderboardHandler обрабатывает запросы лидерборда друзей.
type GetFriendLeaderboardHandler struct {
	challenges challenge.Repository
	friends    social.Repository
	profiles   profile.Repository
	cache      leaderboard.ViewCache
	clock      timeutil.Clock
	recorder   Recorder
	group      singleflight.Group
}

// NewGetFriendLeaderboardHandler создаёт обработчик. cache и recorder могут быть nil.
func NewGetFriendLeaderboardHandler(
	challenges challenge.Repository,
	friends social.Repository,
	profiles profile.Repository,
	cache leaderboard.ViewCache,
	clock timeutil.Clock,
	recorder Recorder,
) *GetFriendLeaderboardHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &GetFriendLeaderboardHandler{
		challenges: challenges,
		friends:    friends,
		profiles:   profiles,
		cache:      cache,
		clock:      clock,
		recorder:   orNop(recorder),
	}
}

// Handle выполняет запрос лидерборда друзей.
func (h *GetFriendLeaderboardHandler) Handle(ctx context.Context, q GetFriendLeaderboardQuery) (view *leaderboard.FriendView, err error) {
	if err := validate.Struct(q); err != nil {
		return nil, validationError("GetFriendLeaderboard", err)
	}
	r := leaderboard.ParseRange(q.Range)

	ctx, obs := observe(ctx, h.recorder, "GetFriendLeaderboard",
		attribute.String("user.id", q.UserID),
		attribute.String("leaderboard.range", r.String()),
	)
	defer obs.end(ctx, &err)

	if h.cache != nil && !q.SkipCache {
		cached, found, cerr := h.cache.GetFriends(ctx, q.UserID, r)
		if cerr != nil {
			logger.FromContext(ctx).Warn("friend leaderboard cache read failed", logger.UserID(q.UserID), logger.Err(cerr))
		}
		h.recorder.ObserveCache("friends", found)
		if found {
			return cached, nil
		}
	}

	view, err = shareBuild(ctx, &h.group, q.UserID+":"+r.String(), func(ctx context.Context) (*leaderboard.FriendView, error) {
		return h.build(ctx, q.UserID, r)
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if cerr := h.cache.SetFriends(ctx, view); cerr != nil {
			logger.FromContext(ctx).Warn("friend leaderboard cache write failed", logger.UserID(q.UserID), logger.Rows(len(view.Rows)), logger.Err(cerr))
		}
	}
	return view, nil
}

// build загружает данные и строит лидерборд.
func (h *GetFriendLeaderboardHandler) build(ctx context.Context, userID string, r leaderboard.Range) (*leaderboard.FriendView, error) {
	now := h.clock.Now()
	windowStart := r.WindowStart(now)
	view := &leaderboard.FriendView{
		UserID:      userID,
		Range:       r,
		GeneratedAt: now,
		Rows:        []leaderboard.FriendRow{},
	}

	var (
		friendIDs  []string
		challenges []challenge.Challenge
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := h.friends.ListAcceptedFriendIDs(gctx, userID)
		if err != nil {
			return fetchError("GetFriendLeaderboard", "friends", err)
		}
		friendIDs = ids
		return nil
	})
	g.Go(func() error {
		list, err := h.challenges.ListChallenges(gctx, challenge.ChallengeFilter{
			Visibility: challenge.VisibilityPrivate,
			Status:     challenge.StatusEnded,
			EndedAfter: windowStart,
		})
		if err != nil {
			return fetchError("GetFriendLeaderboard", "challenges", err)
		}
		challenges = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(challenges) == 0 {
		return view, nil
	}

	friends := social.NewFriendSet(userID, friendIDs)

	submissions, err := h.challenges.ListSubmissions(ctx, challenge.SubmissionFilter{
		ChallengeIDs: challengeIDs(challenges),
		UserIDs:      friends.IDs(),
	})
	if err != nil {
		return nil, fetchError("GetFriendLeaderboard", "submissions", err)
	}
	if len(submissions) == 0 {
		return view, nil
	}

	ratings, err := h.challenges.ListRatings(ctx, challenge.RatingFilter{SubmissionIDs: submissionIDs(submissions)})
	if err != nil {
		return nil, fetchError("GetFriendLeaderboard", "ratings", err)
	}
	if err := scoring.ValidateRatings(ratings); err != nil {
		return nil, err
	}

	wins := leaderboard.CountFriendWins(leaderboard.FriendInput{
		Challenges:  challenges,
		Submissions: submissions,
		Ratings:     ratings,
		Friends:     friends,
		WindowStart: windowStart,
	})
	if len(wins) == 0 {
		return view, nil
	}

	profiles, err := h.profiles.LookupProfiles(ctx, keys(wins))
	if err != nil {
		return nil, fetchError("GetFriendLeaderboard", "profiles", err)
	}

	view.Rows = leaderboard.RankFriendWins(wins, profiles)
	return view, nil
}

func challengeIDs(challenges []challenge.Challenge) []string {
	ids := make([]string, len(challenges))
	for i, c := range challenges {
		ids[i] = c.ID
	}
	return ids
}

func submissionIDs(submissions []challenge.Submission) []string {
	ids := make([]string, len(submissions))
	for i, s := range submissions {
		ids[i] = s.ID
	}
	return ids
}

package query

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHALLENGE RESULTS QUERY
// Итоги челленджа: средние оценки, реакции и победитель.
// ══════════════════════════════════════════════════════════════════════════════

// GetChallengeResultsQuery содержит параметры запроса.
type GetChallengeResultsQuery struct {
	ChallengeID string `validate:"required,uuid"`
}

// SubmissionResultDTO - итог одной отправки.
type SubmissionResultDTO struct {
	// Rank - место по правилам выбора победителя (начиная с 1).
	Rank         int       `json:"rank"`
	SubmissionID string    `json:"submissionId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	DisplayName  *string   `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`

	// AvgStars равен nil, если отправку никто не оценил.
	AvgStars    *float64       `json:"avgStars"`
	RatingCount int            `json:"ratingCount"`
	Reactions   map[string]int `json:"reactions"`
}

// WinnerDTO - победитель челленджа.
type WinnerDTO struct {
	SubmissionID string  `json:"submissionId"`
	UserID       string  `json:"userId"`
	Username     string  `json:"username"`
	DisplayName  *string `json:"displayName"`
	AvgStars     float64 `json:"avgStars"`
}

// ChallengeResultsDTO - итоги челленджа.
type ChallengeResultsDTO struct {
	ChallengeID string                `json:"challengeId"`
	Title       string                `json:"title"`
	Visibility  string                `json:"visibility"`
	Status      string                `json:"status"`
	EndAt       time.Time             `json:"endAt"`
	Submissions []SubmissionResultDTO `json:"submissions"`

	// Winner заполняется только для завершённого челленджа с отправками.
	Winner *WinnerDTO `json:"winner"`
}

// GetChallengeResultsHandler обрабатывает запрос итогов челленджа.
type GetChallengeResultsHandler struct {
	challenges challenge.Repository
	profiles   profile.Repository
	recorder   Recorder
}

// NewGetChallengeResultsHandler создаёт обработчик.
func NewGetChallengeResultsHandler(
	challenges challenge.Repository,
	profiles profile.Repository,
	recorder Recorder,
) *GetChallengeResultsHandler {
	return &GetChallengeResultsHandler{
		challenges: challenges,
		profiles:   profiles,
		recorder:   orNop(recorder),
	}
}

// Handle выполняет запрос итогов челленджа.
func (h *GetChallengeResultsHandler) Handle(ctx context.Context, q GetChallengeResultsQuery) (result *ChallengeResultsDTO, err error) {
	if err := validate.Struct(q); err != nil {
		return nil, validationError("GetChallengeResults", err)
	}

	ctx, obs := observe(ctx, h.recorder, "GetChallengeResults",
		attribute.String("challenge.id", q.ChallengeID),
	)
	defer obs.end(ctx, &err)

	var (
		ch          *challenge.Challenge
		submissions []challenge.Submission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := h.challenges.GetChallenge(gctx, q.ChallengeID)
		if err != nil {
			return err
		}
		ch = c
		return nil
	})
	g.Go(func() error {
		list, err := h.challenges.ListSubmissions(gctx, challenge.SubmissionFilter{ChallengeIDs: []string{q.ChallengeID}})
		if err != nil {
			return fetchError("GetChallengeResults", "submissions", err)
		}
		submissions = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result = &ChallengeResultsDTO{
		ChallengeID: ch.ID,
		Title:       ch.Title(),
		Visibility:  string(ch.Visibility),
		Status:      string(ch.Status),
		EndAt:       ch.EndAt,
		Submissions: []SubmissionResultDTO{},
	}
	if len(submissions) == 0 {
		return result, nil
	}

	var (
		ratings   []challenge.Rating
		reactions []challenge.Reaction
		profiles  profile.Directory
	)
	ids := submissionIDs(submissions)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := h.challenges.ListRatings(gctx, challenge.RatingFilter{SubmissionIDs: ids})
		if err != nil {
			return fetchError("GetChallengeResults", "ratings", err)
		}
		ratings = list
		return scoring.ValidateRatings(list)
	})
	g.Go(func() error {
		list, err := h.challenges.ListReactions(gctx, ids)
		if err != nil {
			return fetchError("GetChallengeResults", "reactions", err)
		}
		reactions = list
		return nil
	})
	g.Go(func() error {
		userIDs := make([]string, len(submissions))
		for i, s := range submissions {
			userIDs[i] = s.UserID
		}
		dir, err := h.profiles.LookupProfiles(gctx, userIDs)
		if err != nil {
			return fetchError("GetChallengeResults", "profiles", err)
		}
		profiles = dir
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := scoring.Aggregate(ratings)
	reactionCounts := countReactions(reactions)

	rows := make([]SubmissionResultDTO, 0, len(submissions))
	for _, s := range submissions {
		p := profiles.Get(s.UserID)
		row := SubmissionResultDTO{
			SubmissionID: s.ID,
			UserID:       s.UserID,
			Username:     p.Username,
			DisplayName:  p.DisplayName,
			CreatedAt:    s.CreatedAt,
			RatingCount:  idx.Count(s.ID),
			Reactions:    reactionCounts.forSubmission(s.ID),
		}
		if avg, ok := idx.Mean(s.ID); ok {
			row.AvgStars = &avg
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if av, bv := avgOrZero(a.AvgStars), avgOrZero(b.AvgStars); av != bv {
			return av > bv
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.SubmissionID < b.SubmissionID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	result.Submissions = rows

	if ch.IsEnded() {
		if w, ok := scoring.ResolveWinnersIndexed(submissions, idx)[ch.ID]; ok {
			p := profiles.Get(w.UserID)
			result.Winner = &WinnerDTO{
				SubmissionID: w.SubmissionID,
				UserID:       w.UserID,
				Username:     p.Username,
				DisplayName:  p.DisplayName,
				AvgStars:     w.AvgStars,
			}
		}
	}

	return result, nil
}

// reactionIndex - количество реакций каждого типа по ID отправки.
type reactionIndex map[string]map[challenge.ReactionType]int

func countReactions(reactions []challenge.Reaction) reactionIndex {
	idx := make(reactionIndex)
	for _, r := range reactions {
		if !r.Type.IsValid() {
			continue
		}
		counts, ok := idx[r.SubmissionID]
		if !ok {
			counts = make(map[challenge.ReactionType]int, len(challenge.ReactionTypes))
			idx[r.SubmissionID] = counts
		}
		counts[r.Type]++
	}
	return idx
}

// forSubmission возвращает счётчики всех типов реакций, включая нулевые.
func (idx reactionIndex) forSubmission(submissionID string) map[string]int {
	out := make(map[string]int, len(challenge.ReactionTypes))
	for _, t := range challenge.ReactionTypes {
		out[string(t)] = idx[submissionID][t]
	}
	return out
}

func avgOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

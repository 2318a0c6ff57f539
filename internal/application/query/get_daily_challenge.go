package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TODAY'S DAILY CHALLENGE QUERY
// Ежедневный челлендж на сегодня (UTC) и, если указан пользователь, его серия.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultDailyPrompt - текст по умолчанию, если у челленджа нет задания.
const DefaultDailyPrompt = "Daily Photo Challenge"

// GetDailyChallengeQuery содержит параметры запроса.
type GetDailyChallengeQuery struct {
	// UserID - необязательный пользователь для расчёта серии.
	UserID string `validate:"omitempty,uuid"`
}

// DailyChallengeDTO - ежедневный челлендж.
type DailyChallengeDTO struct {
	ID               string    `json:"id"`
	PromptText       string    `json:"promptText"`
	Date             string    `json:"date"`
	EndAt            time.Time `json:"endAt"`
	SubmissionCount  int       `json:"submissionCount"`
	ParticipantCount int       `json:"participantCount"`

	// Поля ниже заполняются только при указанном пользователе.
	Streak    *int   `json:"streak,omitempty"`
	Badge     string `json:"badge,omitempty"`
	Submitted *bool  `json:"submitted,omitempty"`
}

// GetDailyChallengeHandler обрабатывает запрос ежедневного челленджа.
type GetDailyChallengeHandler struct {
	challenges challenge.Repository
	clock      timeutil.Clock
	recorder   Recorder
}

// NewGetDailyChallengeHandler создаёт обработчик.
func NewGetDailyChallengeHandler(challenges challenge.Repository, clock timeutil.Clock, recorder Recorder) *GetDailyChallengeHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &GetDailyChallengeHandler{
		challenges: challenges,
		clock:      clock,
		recorder:   orNop(recorder),
	}
}

// Handle возвращает ежедневный челлендж на сегодня.
// Если челленджа нет, возвращает shared.ErrDailyNotFound.
func (h *GetDailyChallengeHandler) Handle(ctx context.Context, q GetDailyChallengeQuery) (daily *DailyChallengeDTO, err error) {
	if err := validate.Struct(q); err != nil {
		return nil, validationError("GetDailyChallenge", err)
	}

	today := timeutil.Today(h.clock)
	ctx, obs := observe(ctx, h.recorder, "GetDailyChallenge",
		attribute.String("daily.date", today),
	)
	defer obs.end(ctx, &err)

	var (
		ch          *challenge.Challenge
		dailyDates  []string
		userEntered map[string]struct{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := h.challenges.GetDailyChallenge(gctx, today)
		if err != nil {
			return err
		}
		ch = c
		return nil
	})
	if q.UserID != "" {
		g.Go(func() error {
			dates, entered, err := h.userDailyDates(gctx, q.UserID)
			if err != nil {
				return err
			}
			dailyDates, userEntered = dates, entered
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	submissions, err := h.challenges.ListSubmissions(ctx, challenge.SubmissionFilter{ChallengeIDs: []string{ch.ID}})
	if err != nil {
		return nil, fetchError("GetDailyChallenge", "submissions", err)
	}

	participants := make(map[string]struct{}, len(submissions))
	for _, s := range submissions {
		participants[s.UserID] = struct{}{}
	}

	prompt := ch.PromptText
	if prompt == "" {
		prompt = DefaultDailyPrompt
	}

	daily = &DailyChallengeDTO{
		ID:               ch.ID,
		PromptText:       prompt,
		Date:             today,
		EndAt:            ch.EndAt,
		SubmissionCount:  len(submissions),
		ParticipantCount: len(participants),
	}

	if q.UserID != "" {
		streak := scoring.Streak(dailyDates)
		_, submitted := userEntered[ch.ID]
		daily.Streak = &streak
		daily.Badge = string(scoring.ClassifyBadge(streak))
		daily.Submitted = &submitted
	}

	return daily, nil
}

// userDailyDates возвращает даты ежедневных челленджей, в которых участвовал
// пользователь, и множество всех его челленджей.
func (h *GetDailyChallengeHandler) userDailyDates(ctx context.Context, userID string) ([]string, map[string]struct{}, error) {
	own, err := h.challenges.ListSubmissions(ctx, challenge.SubmissionFilter{UserIDs: []string{userID}})
	if err != nil {
		return nil, nil, fetchError("GetDailyChallenge", "user submissions", err)
	}

	ids := distinctChallengeIDs(own)
	entered := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		entered[id] = struct{}{}
	}
	if len(ids) == 0 {
		return nil, entered, nil
	}

	challenges, err := h.challenges.ListChallenges(ctx, challenge.ChallengeFilter{IDs: ids})
	if err != nil {
		return nil, nil, fetchError("GetDailyChallenge", "user challenges", err)
	}

	dates := make([]string, 0, len(challenges))
	for _, c := range challenges {
		if c.IsDaily && c.DailyDate != "" {
			dates = append(dates, c.DailyDate)
		}
	}
	return dates, entered, nil
}

// Package command contains write operations following CQRS pattern.
// Commands change state and return only what the caller needs to proceed.
package command

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/pkg/logger"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE DAILY CHALLENGE COMMAND
// Создаёт ежедневный челлендж на дату из случайного активного шаблона.
// Повторный вызов за ту же дату возвращает уже существующий челлендж.
// ══════════════════════════════════════════════════════════════════════════════

// CreateDailyChallengeCommand содержит параметры команды.
type CreateDailyChallengeCommand struct {
	// Date - календарная дата UTC (YYYY-MM-DD). Пустая строка - сегодня.
	Date string
}

// CreateDailyChallengeResult - результат команды.
type CreateDailyChallengeResult struct {
	Challenge challenge.Challenge

	// Created равен false, если челлендж за дату уже существовал.
	Created bool
}

// CreateDailyChallengeHandler обрабатывает команду создания ежедневного челленджа.
type CreateDailyChallengeHandler struct {
	reader challenge.Repository
	writer challenge.DailyWriter
	clock  timeutil.Clock
	log    *logger.Logger

	// pick выбирает индекс шаблона из n.
	pick func(n int) int
	// newID генерирует ID челленджа.
	newID func() string
}

// NewCreateDailyChallengeHandler создаёт обработчик.
func NewCreateDailyChallengeHandler(
	reader challenge.Repository,
	writer challenge.DailyWriter,
	clock timeutil.Clock,
	log *logger.Logger,
) *CreateDailyChallengeHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CreateDailyChallengeHandler{
		reader: reader,
		writer: writer,
		clock:  clock,
		log:    log.With(logger.Component("create_daily_challenge")),
		pick:   rand.IntN,
		newID:  uuid.NewString,
	}
}

// Handle выполняет команду.
func (h *CreateDailyChallengeHandler) Handle(ctx context.Context, cmd CreateDailyChallengeCommand) (*CreateDailyChallengeResult, error) {
	date := cmd.Date
	if date == "" {
		date = timeutil.Today(h.clock)
	}
	day, err := timeutil.ParseCalendarDate(date)
	if err != nil {
		return nil, shared.WrapError("command", "CreateDailyChallenge", shared.ErrInvalidCalendarDate, "invalid date", err)
	}
	// Приводим к каноничному виду, например 2024-02-30 -> 2024-03-01.
	date = timeutil.FormatDateStr(timeutil.FromDayNumber(day))

	if existing, err := h.reader.GetDailyChallenge(ctx, date); err == nil {
		return &CreateDailyChallengeResult{Challenge: *existing}, nil
	} else if !shared.IsNotFound(err) {
		return nil, shared.WrapError("command", "CreateDailyChallenge", shared.ErrServiceUnavailable, "failed to check existing daily challenge", err)
	}

	templates, err := h.writer.ListActiveTemplates(ctx)
	if err != nil {
		return nil, shared.WrapError("command", "CreateDailyChallenge", shared.ErrServiceUnavailable, "failed to load templates", err)
	}
	if len(templates) == 0 {
		return nil, shared.ErrNoActiveTemplates
	}

	tpl := templates[h.pick(len(templates))]
	now := h.clock.Now().UTC()
	c := challenge.Challenge{
		ID:           h.newID(),
		Type:         challenge.KindText,
		Visibility:   challenge.VisibilityPublic,
		Status:       challenge.StatusActive,
		EndAt:        timeutil.EndOfDay(timeutil.FromDayNumber(day)),
		CreatedAt:    now,
		IsDaily:      true,
		DailyDate:    date,
		TemplateID:   tpl.ID,
		PromptText:   tpl.Text,
		TemplateText: tpl.Text,
		TimeLimitH:   challenge.DailyTimeLimitH,
	}

	if err := h.writer.CreateDailyChallenge(ctx, c); err != nil {
		if errors.Is(err, shared.ErrDailyAlreadyExists) {
			// Другой экземпляр успел создать челлендж первым.
			existing, gerr := h.reader.GetDailyChallenge(ctx, date)
			if gerr != nil {
				return nil, shared.WrapError("command", "CreateDailyChallenge", shared.ErrServiceUnavailable, "failed to load concurrent daily challenge", gerr)
			}
			return &CreateDailyChallengeResult{Challenge: *existing}, nil
		}
		return nil, shared.WrapError("command", "CreateDailyChallenge", shared.ErrServiceUnavailable, "failed to create daily challenge", err)
	}

	h.log.Info("daily challenge created",
		logger.ChallengeID(c.ID),
		logger.DailyDate(date),
		logger.String("template_id", tpl.ID),
		logger.Time("end_at", c.EndAt),
	)

	return &CreateDailyChallengeResult{Challenge: c, Created: true}, nil
}

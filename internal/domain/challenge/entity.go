// Package challenge содержит доменную модель фото-челленджей SnapClash.
// Челлендж ограничен по времени: участники присылают по одному фото,
// остальные ставят оценки (звёзды) и реакции, а после завершения
// вычисляется победитель.
package challenge

import (
	"fmt"
	"time"

	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Visibility определяет, кто видит челлендж.
type Visibility string

const (
	// VisibilityPrivate - челлендж между друзьями, доступен по приглашению.
	VisibilityPrivate Visibility = "private"
	// VisibilityPublic - челлендж в публичной арене.
	VisibilityPublic Visibility = "public"
)

// IsValid проверяет корректность видимости.
func (v Visibility) IsValid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Status - жизненный цикл челленджа.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusEnded, StatusCancelled:
		return true
	default:
		return false
	}
}

// Kind - тип челленджа.
type Kind string

const (
	// KindText - челлендж по текстовому заданию.
	KindText Kind = "text"
	// KindImitation - повторить позу или кадр с эталонного фото.
	KindImitation Kind = "imitation"
)

// ReactionType - эмодзи-реакция на фото.
type ReactionType string

const (
	ReactionFlame ReactionType = "flame"
	ReactionHeart ReactionType = "heart"
	ReactionWow   ReactionType = "wow"
)

// ReactionTypes перечисляет все поддерживаемые реакции в порядке отображения.
var ReactionTypes = []ReactionType{ReactionFlame, ReactionHeart, ReactionWow}

// IsValid проверяет, что реакция поддерживается.
func (r ReactionType) IsValid() bool {
	for _, t := range ReactionTypes {
		if r == t {
			return true
		}
	}
	return false
}

// Пределы оценки в звёздах.
const (
	MinStars        = 0
	MinPublicStars  = 1
	MaxStars        = 5
	DefaultTitle    = "Photo challenge"
	DailyTimeLimitH = 24
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Challenge - челлендж. Для расчётов ядру нужны только видимость, статус и
// временные метки; текстовые поля используются для отображения.
type Challenge struct {
	ID         string
	Type       Kind
	Visibility Visibility
	Status     Status
	CreatorID  string
	EndAt      time.Time
	CreatedAt  time.Time

	// IsDaily и DailyDate заполнены только у ежедневных челленджей.
	// DailyDate - календарная дата UTC в формате YYYY-MM-DD.
	IsDaily   bool
	DailyDate string

	TemplateID   string
	PromptText   string
	TemplateText string
	TimeLimitH   int
}

// Title возвращает заголовок челленджа: текст задания, затем текст шаблона,
// затем заголовок по умолчанию.
func (c Challenge) Title() string {
	if c.PromptText != "" {
		return c.PromptText
	}
	if c.TemplateText != "" {
		return c.TemplateText
	}
	return DefaultTitle
}

// IsEnded возвращает true для завершённого челленджа.
func (c Challenge) IsEnded() bool {
	return c.Status == StatusEnded
}

// Submission - фото участника. На пару (челлендж, пользователь) допускается
// одна отправка; ограничение обеспечивает хранилище.
type Submission struct {
	ID          string
	ChallengeID string
	UserID      string
	CreatedAt   time.Time
}

// Rating - оценка фото в звёздах. Одна оценка на пару (фото, оценщик).
type Rating struct {
	SubmissionID string
	RaterID      string
	Stars        int
}

// OwnedRating - оценка вместе с автором оценённого фото.
// Используется для рейтинга лучших участников.
type OwnedRating struct {
	Rating
	OwnerID string
}

// Reaction - эмодзи-реакция пользователя на фото.
type Reaction struct {
	SubmissionID string
	UserID       string
	Type         ReactionType
}

// Template - шаблон задания для ежедневных челленджей.
type Template struct {
	ID       string
	Text     string
	IsActive bool
}

// Winner - победитель челленджа. Вычисляется, никогда не сохраняется.
type Winner struct {
	ChallengeID  string
	SubmissionID string
	UserID       string
	AvgStars     float64
	CreatedAt    time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// ValidateStars проверяет оценку для видимости челленджа:
// публичные челленджи принимают 1..5, приватные 0..5.
// Агрегаторы эту проверку не выполняют, её делает вызывающая сторона при записи.
func ValidateStars(visibility Visibility, stars int) error {
	if !visibility.IsValid() {
		return shared.WrapError("challenge", "ValidateStars", shared.ErrInvalidInput,
			"invalid challenge visibility", fmt.Errorf("visibility %q", visibility))
	}

	low := MinStars
	if visibility == VisibilityPublic {
		low = MinPublicStars
	}

	if stars < low || stars > MaxStars {
		return shared.WrapError("challenge", "ValidateStars", shared.ErrValueOutOfRange,
			"stars out of range for challenge visibility",
			fmt.Errorf("got %d, want %d..%d", stars, low, MaxStars))
	}
	return nil
}

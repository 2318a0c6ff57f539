package challenge

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository - узкий интерфейс чтения, через который ядро получает данные.
// Реализация находится в infrastructure слое (PostgreSQL).
// Порядок возвращаемых строк не гарантируется: все расчёты ядра
// не зависят от порядка входных данных.
type Repository interface {
	// ListChallenges возвращает челленджи, удовлетворяющие фильтру.
	ListChallenges(ctx context.Context, filter ChallengeFilter) ([]Challenge, error)

	// ListSubmissions возвращает отправки, удовлетворяющие фильтру.
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)

	// ListRatings возвращает оценки для указанных отправок.
	ListRatings(ctx context.Context, filter RatingFilter) ([]Rating, error)

	// ListRatingsWithOwner возвращает все оценки вместе с автором фото.
	ListRatingsWithOwner(ctx context.Context) ([]OwnedRating, error)

	// ListReactions возвращает реакции для указанных отправок.
	ListReactions(ctx context.Context, submissionIDs []string) ([]Reaction, error)

	// GetChallenge возвращает челлендж по ID.
	// Возвращает shared.ErrChallengeNotFound, если челлендж не найден.
	GetChallenge(ctx context.Context, id string) (*Challenge, error)

	// GetDailyChallenge возвращает ежедневный челлендж за дату (YYYY-MM-DD).
	// Возвращает shared.ErrDailyNotFound, если челленджа нет.
	GetDailyChallenge(ctx context.Context, date string) (*Challenge, error)
}

// DailyWriter - порт записи для создания ежедневных челленджей.
type DailyWriter interface {
	// ListActiveTemplates возвращает активные шаблоны заданий.
	ListActiveTemplates(ctx context.Context) ([]Template, error)

	// CreateDailyChallenge сохраняет ежедневный челлендж.
	// Возвращает shared.ErrDailyAlreadyExists, если за дату челлендж уже есть.
	CreateDailyChallenge(ctx context.Context, c Challenge) error
}

// ══════════════════════════════════════════════════════════════════════════════
// FILTERS
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeFilter - фильтр челленджей. Пустые поля не ограничивают выборку.
type ChallengeFilter struct {
	IDs           []string
	Visibility    Visibility
	Status        Status
	ExcludeStatus Status

	// CreatedAfter ограничивает created_at >= CreatedAfter.
	CreatedAfter time.Time

	// EndedAfter ограничивает end_at >= EndedAfter.
	EndedAfter time.Time
}

// SubmissionFilter - фильтр отправок. Пустые поля не ограничивают выборку.
type SubmissionFilter struct {
	ChallengeIDs []string
	UserIDs      []string
	CreatedAfter time.Time
}

// RatingFilter - фильтр оценок.
type RatingFilter struct {
	SubmissionIDs []string
}

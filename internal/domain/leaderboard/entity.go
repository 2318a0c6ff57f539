package leaderboard

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIMITS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultTopLimit - длина публичного лидерборда и рейтинга участников.
	DefaultTopLimit = 10

	// DefaultMinRatedSubmissions - сколько разных оценённых фото нужно,
	// чтобы попасть в рейтинг лучших участников.
	DefaultMinRatedSubmissions = 10
)

// Limits - параметры обрезки лидербордов.
type Limits struct {
	Top                 int
	MinRatedSubmissions int
}

// DefaultLimits возвращает стандартные ограничения.
func DefaultLimits() Limits {
	return Limits{
		Top:                 DefaultTopLimit,
		MinRatedSubmissions: DefaultMinRatedSubmissions,
	}
}

// normalized подставляет значения по умолчанию вместо неположительных.
func (l Limits) normalized() Limits {
	if l.Top <= 0 {
		l.Top = DefaultTopLimit
	}
	if l.MinRatedSubmissions <= 0 {
		l.MinRatedSubmissions = DefaultMinRatedSubmissions
	}
	return l
}

// ══════════════════════════════════════════════════════════════════════════════
// ROWS
// ══════════════════════════════════════════════════════════════════════════════

// FriendRow - строка лидерборда побед среди друзей.
type FriendRow struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName"`
	Wins        int     `json:"wins"`
}

// PublicRow - строка лидерборда публичных челленджей.
// AvgStars равен nil, если ни одно фото челленджа не оценено.
type PublicRow struct {
	ChallengeID     string   `json:"challengeId"`
	Title           string   `json:"title"`
	SubmissionCount int      `json:"submissionCount"`
	AvgStars        *float64 `json:"avgStars"`
}

// TopRow - строка рейтинга лучших участников.
type TopRow struct {
	UserID           string  `json:"userId"`
	Username         string  `json:"username"`
	DisplayName      *string `json:"displayName"`
	AvgStars         float64 `json:"avgStars"`
	RatedSubmissions int     `json:"ratedSubmissions"`
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEWS
// Готовые к отдаче и кешированию представления.
// ══════════════════════════════════════════════════════════════════════════════

// FriendView - лидерборд побед среди друзей для одного пользователя.
type FriendView struct {
	UserID      string      `json:"userId"`
	Range       Range       `json:"range"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Rows        []FriendRow `json:"rows"`
}

// PublicView - лидерборд публичных челленджей.
type PublicView struct {
	Range       Range       `json:"range"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Rows        []PublicRow `json:"rows"`
}

// TopView - рейтинг лучших участников за всё время.
type TopView struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Rows        []TopRow  `json:"rows"`
}

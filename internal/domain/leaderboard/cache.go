package leaderboard

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// VIEW CACHE INTERFACE
// Готовые представления хранятся в кеше (Redis) и пересчитываются воркером.
// Промах кеша не является ошибкой: found == false.
// ══════════════════════════════════════════════════════════════════════════════

// ViewCache - кеш готовых лидербордов.
type ViewCache interface {
	// GetFriends возвращает лидерборд друзей пользователя за окно.
	GetFriends(ctx context.Context, userID string, r Range) (view *FriendView, found bool, err error)

	// SetFriends сохраняет лидерборд друзей.
	SetFriends(ctx context.Context, view *FriendView) error

	// GetPublic возвращает публичный лидерборд за окно.
	GetPublic(ctx context.Context, r Range) (view *PublicView, found bool, err error)

	// SetPublic сохраняет публичный лидерборд.
	SetPublic(ctx context.Context, view *PublicView) error

	// GetTop возвращает рейтинг лучших участников.
	GetTop(ctx context.Context) (view *TopView, found bool, err error)

	// SetTop сохраняет рейтинг лучших участников.
	SetTop(ctx context.Context, view *TopView) error
}

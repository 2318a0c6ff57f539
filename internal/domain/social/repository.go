package social

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository - чтение дружеских связей.
type Repository interface {
	// ListAcceptedFriendIDs возвращает ID пользователей, связанных с userID
	// принятой дружбой в любом направлении. Сам userID в список не входит.
	ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error)
}

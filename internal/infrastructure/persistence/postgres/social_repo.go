package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/internal/domain/social"
)

// SocialRepository implements social.Repository using PostgreSQL.
type SocialRepository struct {
	conn *Connection
}

var _ social.Repository = (*SocialRepository)(nil)

// NewSocialRepository creates a new SocialRepository.
func NewSocialRepository(conn *Connection) *SocialRepository {
	return &SocialRepository{conn: conn}
}

// ListAcceptedFriendIDs returns the other side of every accepted friendship
// of the user. Friendships are stored once per pair, in either direction.
func (r *SocialRepository) ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, shared.WrapError("social", "ListAcceptedFriendIDs", shared.ErrInvalidUserID, "invalid user id", err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT requester_id::text, addressee_id::text
		FROM friendships
		WHERE status = $1 AND (requester_id = $2 OR addressee_id = $2)
	`, string(social.FriendshipAccepted), uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer rows.Close()

	var friendships []social.Friendship
	for rows.Next() {
		f := social.Friendship{Status: social.FriendshipAccepted}
		if err := rows.Scan(&f.RequesterID, &f.AddresseeID); err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		friendships = append(friendships, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	set := social.FriendSetFromFriendships(userID, friendships)
	delete(set, userID)
	return set.IDs(), nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

// ProfileRepository implements profile.Repository using PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

var _ profile.Repository = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// LookupProfiles returns the profiles that exist among userIDs.
// Missing users are absent from the result.
func (r *ProfileRepository) LookupProfiles(ctx context.Context, userIDs []string) (profile.Directory, error) {
	dir := make(profile.Directory, len(userIDs))
	if len(userIDs) == 0 {
		return dir, nil
	}

	ids, err := parseUUIDs(userIDs)
	if err != nil {
		return nil, shared.WrapError("profile", "LookupProfiles", shared.ErrInvalidUserID, "invalid user id", err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id::text, username, display_name
		FROM profiles
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p profile.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		dir[p.ID] = p
	}

	return dir, rows.Err()
}

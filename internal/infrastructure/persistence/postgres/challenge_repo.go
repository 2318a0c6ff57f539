package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository and challenge.DailyWriter.
type ChallengeRepository struct {
	conn *Connection
}

var (
	_ challenge.Repository  = (*ChallengeRepository)(nil)
	_ challenge.DailyWriter = (*ChallengeRepository)(nil)
)

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(conn *Connection) *ChallengeRepository {
	return &ChallengeRepository{conn: conn}
}

const challengeColumns = `
	c.id::text, c.type, c.visibility, c.status, COALESCE(c.creator_id::text, ''),
	c.end_at, c.created_at, c.is_daily, COALESCE(to_char(c.daily_date, 'YYYY-MM-DD'), ''),
	COALESCE(c.template_id::text, ''), COALESCE(c.prompt_text, ''), COALESCE(t.text, ''),
	c.time_limit_hours`

const challengeFrom = `
	FROM challenges c
	LEFT JOIN challenge_templates t ON t.id = c.template_id`

// ─────────────────────────────────────────────────────────────────────────────
// CHALLENGES
// ─────────────────────────────────────────────────────────────────────────────

// buildChallengeQuery renders the SELECT for a challenge filter.
func buildChallengeQuery(f challenge.ChallengeFilter) (string, []any, error) {
	var w whereBuilder
	w.anyOf("c.id", f.IDs)
	w.eq("c.visibility", string(f.Visibility))
	w.eq("c.status", string(f.Status))
	w.neq("c.status", string(f.ExcludeStatus))
	w.since("c.created_at", f.CreatedAfter)
	w.since("c.end_at", f.EndedAfter)

	return w.build("SELECT" + challengeColumns + challengeFrom)
}

// ListChallenges returns challenges matching the filter.
func (r *ChallengeRepository) ListChallenges(ctx context.Context, f challenge.ChallengeFilter) ([]challenge.Challenge, error) {
	sql, args, err := buildChallengeQuery(f)
	if err != nil {
		return nil, shared.WrapError("challenge", "ListChallenges", shared.ErrInvalidID, "invalid filter", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var out []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// GetChallenge returns a challenge by ID.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, shared.WrapError("challenge", "GetChallenge", shared.ErrInvalidID, "invalid challenge id", err)
	}

	row := r.conn.QueryRow(ctx, "SELECT"+challengeColumns+challengeFrom+" WHERE c.id = $1", uid)

	c, err := scanChallenge(row)
	if IsNoRows(err) {
		return nil, shared.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	return &c, nil
}

// GetDailyChallenge returns the daily challenge for a calendar date.
func (r *ChallengeRepository) GetDailyChallenge(ctx context.Context, date string) (*challenge.Challenge, error) {
	row := r.conn.QueryRow(ctx,
		"SELECT"+challengeColumns+challengeFrom+" WHERE c.is_daily AND c.daily_date = to_date($1, 'YYYY-MM-DD')", date)

	c, err := scanChallenge(row)
	if IsNoRows(err) {
		return nil, shared.ErrDailyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily challenge: %w", err)
	}

	return &c, nil
}

func scanChallenge(row pgx.Row) (challenge.Challenge, error) {
	var (
		c                        challenge.Challenge
		kind, visibility, status string
		endAt, createdAt         time.Time
	)

	err := row.Scan(
		&c.ID, &kind, &visibility, &status, &c.CreatorID,
		&endAt, &createdAt, &c.IsDaily, &c.DailyDate,
		&c.TemplateID, &c.PromptText, &c.TemplateText,
		&c.TimeLimitH,
	)
	if err != nil {
		return challenge.Challenge{}, err
	}

	c.Type = challenge.Kind(kind)
	c.Visibility = challenge.Visibility(visibility)
	c.Status = challenge.Status(status)
	c.EndAt = endAt.UTC()
	c.CreatedAt = createdAt.UTC()

	return c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SUBMISSIONS, RATINGS, REACTIONS
// ─────────────────────────────────────────────────────────────────────────────

func buildSubmissionQuery(f challenge.SubmissionFilter) (string, []any, error) {
	var w whereBuilder
	w.anyOf("challenge_id", f.ChallengeIDs)
	w.anyOf("user_id", f.UserIDs)
	w.since("created_at", f.CreatedAfter)

	return w.build("SELECT id::text, challenge_id::text, user_id::text, created_at FROM submissions")
}

// ListSubmissions returns submissions matching the filter.
func (r *ChallengeRepository) ListSubmissions(ctx context.Context, f challenge.SubmissionFilter) ([]challenge.Submission, error) {
	sql, args, err := buildSubmissionQuery(f)
	if err != nil {
		return nil, shared.WrapError("challenge", "ListSubmissions", shared.ErrInvalidID, "invalid filter", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []challenge.Submission
	for rows.Next() {
		var s challenge.Submission
		if err := rows.Scan(&s.ID, &s.ChallengeID, &s.UserID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}

	return out, rows.Err()
}

func buildRatingQuery(f challenge.RatingFilter) (string, []any, error) {
	var w whereBuilder
	w.anyOf("submission_id", f.SubmissionIDs)

	return w.build("SELECT submission_id::text, rater_id::text, stars FROM ratings")
}

// ListRatings returns ratings of the given submissions.
func (r *ChallengeRepository) ListRatings(ctx context.Context, f challenge.RatingFilter) ([]challenge.Rating, error) {
	sql, args, err := buildRatingQuery(f)
	if err != nil {
		return nil, shared.WrapError("challenge", "ListRatings", shared.ErrInvalidID, "invalid filter", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var out []challenge.Rating
	for rows.Next() {
		var rt challenge.Rating
		if err := rows.Scan(&rt.SubmissionID, &rt.RaterID, &rt.Stars); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out = append(out, rt)
	}

	return out, rows.Err()
}

// ListRatingsWithOwner returns every rating with the author of the rated photo.
func (r *ChallengeRepository) ListRatingsWithOwner(ctx context.Context) ([]challenge.OwnedRating, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT r.submission_id::text, r.rater_id::text, r.stars, s.user_id::text
		FROM ratings r
		JOIN submissions s ON s.id = r.submission_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned ratings: %w", err)
	}
	defer rows.Close()

	var out []challenge.OwnedRating
	for rows.Next() {
		var owned challenge.OwnedRating
		if err := rows.Scan(&owned.SubmissionID, &owned.RaterID, &owned.Stars, &owned.OwnerID); err != nil {
			return nil, fmt.Errorf("failed to scan owned rating: %w", err)
		}
		out = append(out, owned)
	}

	return out, rows.Err()
}

// ListReactions returns reactions on the given submissions.
func (r *ChallengeRepository) ListReactions(ctx context.Context, submissionIDs []string) ([]challenge.Reaction, error) {
	if len(submissionIDs) == 0 {
		return nil, nil
	}
	ids, err := parseUUIDs(submissionIDs)
	if err != nil {
		return nil, shared.WrapError("challenge", "ListReactions", shared.ErrInvalidID, "invalid submission id", err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT submission_id::text, user_id::text, type
		FROM reactions
		WHERE submission_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	defer rows.Close()

	var out []challenge.Reaction
	for rows.Next() {
		var (
			re   challenge.Reaction
			kind string
		)
		if err := rows.Scan(&re.SubmissionID, &re.UserID, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		re.Type = challenge.ReactionType(kind)
		out = append(out, re)
	}

	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// DAILY CHALLENGE WRITER
// ─────────────────────────────────────────────────────────────────────────────

// ListActiveTemplates returns active prompt templates.
func (r *ChallengeRepository) ListActiveTemplates(ctx context.Context) ([]challenge.Template, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id::text, text, is_active
		FROM challenge_templates
		WHERE is_active
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []challenge.Template
	for rows.Next() {
		var t challenge.Template
		if err := rows.Scan(&t.ID, &t.Text, &t.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// CreateDailyChallenge inserts a daily challenge.
// A second insert for the same date returns shared.ErrDailyAlreadyExists.
func (r *ChallengeRepository) CreateDailyChallenge(ctx context.Context, c challenge.Challenge) error {
	if _, err := timeutil.ParseCalendarDate(c.DailyDate); err != nil {
		return shared.WrapError("challenge", "CreateDaily", shared.ErrInvalidCalendarDate, "invalid daily date", err)
	}
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return shared.WrapError("challenge", "CreateDaily", shared.ErrInvalidID, "invalid challenge id", err)
	}
	var templateID *uuid.UUID
	if c.TemplateID != "" {
		t, err := uuid.Parse(c.TemplateID)
		if err != nil {
			return shared.WrapError("challenge", "CreateDaily", shared.ErrInvalidID, "invalid template id", err)
		}
		templateID = &t
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO challenges
			(id, type, visibility, status, template_id, prompt_text, time_limit_hours,
			 end_at, is_daily, daily_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, to_date($9, 'YYYY-MM-DD'), $10)
		`,
			id,
			string(c.Type),
			string(c.Visibility),
			string(c.Status),
			templateID,
			c.PromptText,
			c.TimeLimitH,
			c.EndAt.UTC(),
			c.DailyDate,
			c.CreatedAt.UTC(),
		)
		if IsUniqueViolation(err) {
			return shared.ErrDailyAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("failed to insert daily challenge: %w", err)
		}
		return nil
	})
}

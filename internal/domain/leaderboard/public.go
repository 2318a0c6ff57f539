package leaderboard

import (
	"sort"
	"time"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUBLIC CHALLENGE POPULARITY
// ══════════════════════════════════════════════════════════════════════════════

// PublicInput - загруженные данные для лидерборда публичных челленджей.
type PublicInput struct {
	Challenges  []challenge.Challenge
	Submissions []challenge.Submission
	Ratings     []challenge.Rating
	WindowStart time.Time
}

// IsPublicEligible сообщает, учитывается ли челлендж в публичном лидерборде:
// публичный, не черновик и создан не раньше начала окна.
func IsPublicEligible(c challenge.Challenge, windowStart time.Time) bool {
	return c.Visibility == challenge.VisibilityPublic &&
		c.Status != challenge.StatusDraft &&
		!c.CreatedAt.Before(windowStart)
}

// BuildPublicLeaderboard ранжирует публичные челленджи по числу отправок,
// затем по средней оценке всех их фото (неоценённые считаются нулём).
// Челленджи без отправок остаются в списке с нулевым счётчиком, но если
// отправок нет совсем, результат пуст.
func BuildPublicLeaderboard(in PublicInput, limit int) []PublicRow {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	stats := make(map[string]*publicStats)
	order := make([]challenge.Challenge, 0, len(in.Challenges))
	for _, c := range in.Challenges {
		if !IsPublicEligible(c, in.WindowStart) {
			continue
		}
		if _, dup := stats[c.ID]; dup {
			continue
		}
		stats[c.ID] = &publicStats{}
		order = append(order, c)
	}

	owner := make(map[string]string, len(in.Submissions))
	for _, s := range in.Submissions {
		st, ok := stats[s.ChallengeID]
		if !ok {
			continue
		}
		st.submissions++
		owner[s.ID] = s.ChallengeID
	}
	if len(owner) == 0 {
		return []PublicRow{}
	}

	for _, r := range in.Ratings {
		challengeID, ok := owner[r.SubmissionID]
		if !ok {
			continue
		}
		stats[challengeID].ratings.Add(r.Stars)
	}

	rows := make([]PublicRow, 0, len(order))
	for _, c := range order {
		st := stats[c.ID]
		row := PublicRow{
			ChallengeID:     c.ID,
			Title:           c.Title(),
			SubmissionCount: st.submissions,
		}
		if avg, ok := st.ratings.Mean(); ok {
			row.AvgStars = &avg
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SubmissionCount != b.SubmissionCount {
			return a.SubmissionCount > b.SubmissionCount
		}
		if av, bv := avgOrZero(a.AvgStars), avgOrZero(b.AvgStars); av != bv {
			return av > bv
		}
		return a.ChallengeID < b.ChallengeID
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

type publicStats struct {
	submissions int
	ratings     scoring.RatingStats
}

func avgOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

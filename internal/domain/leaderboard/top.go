package leaderboard

import (
	"sort"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOP CHALLENGERS
// ══════════════════════════════════════════════════════════════════════════════

// ChallengerTally - накопленная статистика автора фото.
type ChallengerTally struct {
	UserID           string
	Ratings          scoring.RatingStats
	RatedSubmissions int
}

// TallyChallengers группирует все оценки по автору фото и оставляет тех,
// у кого оценено не меньше minRated разных фото.
func TallyChallengers(ratings []challenge.OwnedRating, minRated int) []ChallengerTally {
	if minRated <= 0 {
		minRated = DefaultMinRatedSubmissions
	}

	type acc struct {
		stats scoring.RatingStats
		subs  map[string]struct{}
	}
	byUser := make(map[string]*acc)

	for _, r := range ratings {
		if r.OwnerID == "" {
			continue
		}
		a, ok := byUser[r.OwnerID]
		if !ok {
			a = &acc{subs: make(map[string]struct{})}
			byUser[r.OwnerID] = a
		}
		a.stats.Add(r.Stars)
		if r.SubmissionID != "" {
			a.subs[r.SubmissionID] = struct{}{}
		}
	}

	tallies := make([]ChallengerTally, 0, len(byUser))
	for userID, a := range byUser {
		if len(a.subs) < minRated {
			continue
		}
		tallies = append(tallies, ChallengerTally{
			UserID:           userID,
			Ratings:          a.stats,
			RatedSubmissions: len(a.subs),
		})
	}
	return tallies
}

// RankChallengers сортирует участников по средней оценке, затем по числу
// оценённых фото, и обрезает список до limit.
func RankChallengers(tallies []ChallengerTally, profiles profile.Directory, limit int) []TopRow {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	rows := make([]TopRow, 0, len(tallies))
	for _, t := range tallies {
		p := profiles.Get(t.UserID)
		avg, _ := t.Ratings.Mean()
		rows = append(rows, TopRow{
			UserID:           t.UserID,
			Username:         p.Username,
			DisplayName:      p.DisplayName,
			AvgStars:         avg,
			RatedSubmissions: t.RatedSubmissions,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.AvgStars != b.AvgStars {
			return a.AvgStars > b.AvgStars
		}
		if a.RatedSubmissions != b.RatedSubmissions {
			return a.RatedSubmissions > b.RatedSubmissions
		}
		return a.UserID < b.UserID
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// BuildTopChallengers строит рейтинг лучших участников за всё время.
func BuildTopChallengers(ratings []challenge.OwnedRating, profiles profile.Directory, limits Limits) []TopRow {
	limits = limits.normalized()
	return RankChallengers(TallyChallengers(ratings, limits.MinRatedSubmissions), profiles, limits.Top)
}

// ChallengerIDs возвращает ID участников из статистики.
func ChallengerIDs(tallies []ChallengerTally) []string {
	ids := make([]string, len(tallies))
	for i, t := range tallies {
		ids[i] = t.UserID
	}
	return ids
}

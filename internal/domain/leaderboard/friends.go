package leaderboard

import (
	"sort"
	"time"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/profile"
	"github.com/snapclash/snapclash-hub/internal/domain/scoring"
	"github.com/snapclash/snapclash-hub/internal/domain/social"
)

// ══════════════════════════════════════════════════════════════════════════════
// FRIEND WINS LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// FriendInput - загруженные данные для лидерборда побед.
type FriendInput struct {
	Challenges  []challenge.Challenge
	Submissions []challenge.Submission
	Ratings     []challenge.Rating
	Friends     social.FriendSet
	WindowStart time.Time
}

// IsFriendEligible сообщает, учитывается ли челлендж в лидерборде побед:
// приватный, завершённый и закончившийся не раньше начала окна.
func IsFriendEligible(c challenge.Challenge, windowStart time.Time) bool {
	return c.Visibility == challenge.VisibilityPrivate &&
		c.Status == challenge.StatusEnded &&
		!c.EndAt.Before(windowStart)
}

// CountFriendWins считает победы друзей в подходящих челленджах.
// Отправки не-друзей отбрасываются до выбора победителя: друг побеждает,
// если его фото лучшее среди фото друзей, даже когда посторонний
// участник получил оценку выше.
func CountFriendWins(in FriendInput) map[string]int {
	eligible := make(map[string]struct{}, len(in.Challenges))
	for _, c := range in.Challenges {
		if IsFriendEligible(c, in.WindowStart) {
			eligible[c.ID] = struct{}{}
		}
	}

	subs := make([]challenge.Submission, 0, len(in.Submissions))
	for _, s := range in.Submissions {
		if _, ok := eligible[s.ChallengeID]; !ok {
			continue
		}
		if !in.Friends.Contains(s.UserID) {
			continue
		}
		subs = append(subs, s)
	}

	wins := make(map[string]int)
	for _, w := range scoring.ResolveWinners(subs, in.Ratings) {
		wins[w.UserID]++
	}
	return wins
}

// RankFriendWins сортирует пользователей по победам (по убыванию),
// затем по имени пользователя.
func RankFriendWins(wins map[string]int, profiles profile.Directory) []FriendRow {
	rows := make([]FriendRow, 0, len(wins))
	for userID, n := range wins {
		p := profiles.Get(userID)
		rows = append(rows, FriendRow{
			UserID:      userID,
			Username:    p.Username,
			DisplayName: p.DisplayName,
			Wins:        n,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})

	return rows
}

// BuildFriendLeaderboard строит лидерборд побед среди друзей.
func BuildFriendLeaderboard(in FriendInput, profiles profile.Directory) []FriendRow {
	return RankFriendWins(CountFriendWins(in), profiles)
}

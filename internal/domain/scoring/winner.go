package scoring

import (
	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
)

// ══════════════════════════════════════════════════════════════════════════════
// WINNER RESOLVER
// ══════════════════════════════════════════════════════════════════════════════

// ResolveWinners выбирает по одному победителю на каждый челлендж,
// в котором есть хотя бы одна отправка.
//
// Правила сравнения:
//  1. неоценённая отправка имеет среднее 0;
//  2. выше среднее - лучше;
//  3. при равном среднем побеждает более ранняя отправка;
//  4. при полном совпадении побеждает меньший ID отправки.
//
// Результат не зависит от порядка входных данных, повторный вызов
// на тех же данных даёт тот же результат.
func ResolveWinners(submissions []challenge.Submission, ratings []challenge.Rating) map[string]challenge.Winner {
	return ResolveWinnersIndexed(submissions, Aggregate(ratings))
}

// ResolveWinnersIndexed - то же, что ResolveWinners, но с готовым индексом оценок.
func ResolveWinnersIndexed(submissions []challenge.Submission, idx RatingIndex) map[string]challenge.Winner {
	winners := make(map[string]challenge.Winner)

	for _, s := range submissions {
		candidate := challenge.Winner{
			ChallengeID:  s.ChallengeID,
			SubmissionID: s.ID,
			UserID:       s.UserID,
			AvgStars:     idx.MeanOrZero(s.ID),
			CreatedAt:    s.CreatedAt,
		}

		best, ok := winners[s.ChallengeID]
		if !ok || beats(candidate, best) {
			winners[s.ChallengeID] = candidate
		}
	}

	return winners
}

// beats сообщает, вытесняет ли кандидат текущего лидера.
func beats(candidate, best challenge.Winner) bool {
	if candidate.AvgStars != best.AvgStars {
		return candidate.AvgStars > best.AvgStars
	}
	if !candidate.CreatedAt.Equal(best.CreatedAt) {
		return candidate.CreatedAt.Before(best.CreatedAt)
	}
	return candidate.SubmissionID < best.SubmissionID
}

// CountWins считает победы пользователя среди победителей.
func CountWins(winners map[string]challenge.Winner, userID string) int {
	wins := 0
	for _, w := range winners {
		if w.UserID == userID {
			wins++
		}
	}
	return wins
}

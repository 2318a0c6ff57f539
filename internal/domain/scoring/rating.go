// Package scoring содержит чистые детерминированные расчёты SnapClash:
// агрегацию оценок, выбор победителя челленджа, подсчёт серии ежедневных
// участий и классификацию бейджей.
//
// Все функции работают над уже загруженными данными, не обращаются к хранилищу
// и не зависят от порядка входных строк.
package scoring

import (
	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATING AGGREGATOR
// ══════════════════════════════════════════════════════════════════════════════

// RatingStats - накопленные сумма и количество оценок одного фото.
type RatingStats struct {
	Sum   int
	Count int
}

// Mean возвращает среднюю оценку. Второй результат false, если оценок нет.
func (s RatingStats) Mean() (float64, bool) {
	if s.Count == 0 {
		return 0, false
	}
	return float64(s.Sum) / float64(s.Count), true
}

// Add учитывает ещё одну оценку.
func (s *RatingStats) Add(stars int) {
	s.Sum += stars
	s.Count++
}

// RatingIndex - сумма и количество оценок по ID отправки.
// Оценка 0 - полноценный голос и участвует в среднем.
type RatingIndex map[string]RatingStats

// Aggregate группирует оценки по отправке за один проход.
func Aggregate(ratings []challenge.Rating) RatingIndex {
	idx := make(RatingIndex, len(ratings))
	for _, r := range ratings {
		st := idx[r.SubmissionID]
		st.Add(r.Stars)
		idx[r.SubmissionID] = st
	}
	return idx
}

// Mean возвращает среднюю оценку отправки или (0, false), если её не оценивали.
func (idx RatingIndex) Mean(submissionID string) (float64, bool) {
	return idx[submissionID].Mean()
}

// Count возвращает количество оценок отправки.
func (idx RatingIndex) Count(submissionID string) int {
	return idx[submissionID].Count
}

// MeanOrZero возвращает среднюю оценку, считая неоценённую отправку нулём.
func (idx RatingIndex) MeanOrZero(submissionID string) float64 {
	avg, _ := idx.Mean(submissionID)
	return avg
}

// Total сводит все оценки индекса в одну статистику.
func (idx RatingIndex) Total() RatingStats {
	var total RatingStats
	for _, st := range idx {
		total.Sum += st.Sum
		total.Count += st.Count
	}
	return total
}

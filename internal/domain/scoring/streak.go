package scoring

import (
	"sort"

	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// Streak возвращает длину последней непрерывной серии календарных дней
// (YYYY-MM-DD, UTC), заканчивающейся на самой поздней дате.
// Серия не обязана включать сегодняшний день. Дубликаты схлопываются,
// нераспознанные даты пропускаются, пустой вход даёт 0. Из даты берутся
// первые три части через "-", остальные игнорируются.
func Streak(dates []string) int {
	days := uniqueDays(dates)
	if len(days) == 0 {
		return 0
	}

	streak := 1
	last := days[len(days)-1]
	for i := len(days) - 2; i >= 0; i-- {
		if last-days[i] != 1 {
			break
		}
		streak++
		last = days[i]
	}

	return streak
}

// StreakActive сообщает, что последняя дата серии - сегодня или вчера.
// На значение Streak не влияет.
func StreakActive(dates []string, today string) bool {
	todayNum, err := timeutil.ParseLeadingCalendarDate(today)
	if err != nil {
		return false
	}

	days := uniqueDays(dates)
	if len(days) == 0 {
		return false
	}

	gap := todayNum - days[len(days)-1]
	return gap == 0 || gap == 1
}

// uniqueDays переводит даты в номера дней UTC, удаляет дубликаты
// и сортирует по возрастанию.
func uniqueDays(dates []string) []int64 {
	seen := make(map[int64]struct{}, len(dates))
	days := make([]int64, 0, len(dates))

	for _, d := range dates {
		n, err := timeutil.ParseLeadingCalendarDate(d)
		if err != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		days = append(days, n)
	}

	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

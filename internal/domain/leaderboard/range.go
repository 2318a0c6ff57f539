// Package leaderboard содержит доменную модель лидербордов SnapClash:
// победы среди друзей, популярность публичных челленджей и лучших участников.
//
// Построители лидербордов - чистые функции над загруженными данными.
// Загрузку выполняет слой application через узкие интерфейсы чтения.
package leaderboard

import (
	"time"

	"github.com/snapclash/snapclash-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANGE
// ══════════════════════════════════════════════════════════════════════════════

// Range - временное окно лидерборда.
type Range string

const (
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeYear  Range = "year"
)

// DefaultRange используется для пустого или неизвестного значения.
const DefaultRange = RangeWeek

var rangeDays = map[Range]int{
	RangeWeek:  7,
	RangeMonth: 30,
	RangeYear:  365,
}

// ParseRange разбирает строку окна. Неизвестные значения дают неделю.
func ParseRange(value string) Range {
	r := Range(value)
	if r.IsValid() {
		return r
	}
	return DefaultRange
}

// IsValid проверяет, что окно поддерживается.
func (r Range) IsValid() bool {
	_, ok := rangeDays[r]
	return ok
}

// Days возвращает длину окна в днях.
func (r Range) Days() int {
	if d, ok := rangeDays[r]; ok {
		return d
	}
	return rangeDays[DefaultRange]
}

// WindowStart возвращает начало окна: now минус Days()*24h.
func (r Range) WindowStart(now time.Time) time.Time {
	return timeutil.WindowStart(now, r.Days())
}

// String возвращает строковое представление окна.
func (r Range) String() string {
	return string(r)
}

// Ranges перечисляет все окна в порядке возрастания длины.
func Ranges() []Range {
	return []Range{RangeWeek, RangeMonth, RangeYear}
}

// Package timeutil provides UTC calendar-day utilities.
// Daily challenges, streaks and leaderboard windows are all defined on the UTC
// calendar, so every helper here works in UTC regardless of the host timezone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is the length of a leaderboard window unit.
const Day = 24 * time.Hour

// Common date/time formats.
const (
	// FormatDate is the calendar date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// Clock abstracts the current time so callers can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock in UTC.
var SystemClock Clock = ClockFunc(Now)

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Date creates a UTC midnight time with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the start of the UTC day (00:00:00).
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last millisecond of the UTC day (23:59:59.999).
// Daily challenges end exactly at this instant.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// FormatDateStr formats a time as a UTC calendar date (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return t.UTC().Format(FormatDate)
}

// Today returns today's UTC calendar date as YYYY-MM-DD.
func Today(c Clock) string {
	return FormatDateStr(c.Now())
}

// WindowStart returns the instant exactly days*24h before now.
func WindowStart(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * Day)
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR DAY NUMBERS
// ══════════════════════════════════════════════════════════════════════════════

// ParseCalendarDate parses a YYYY-MM-DD string into its UTC day number
// (days since 1970-01-01). Each of the three parts must be a positive integer;
// out-of-range month or day values roll over the way time.Date normalises
// them, so "2024-02-30" is the same day as "2024-03-01".
func ParseCalendarDate(value string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 3 {
		return 0, fmt.Errorf("calendar date %q: expected YYYY-MM-DD", value)
	}
	return dayFromParts(value, parts)
}

// ParseLeadingCalendarDate is ParseCalendarDate for stored values: it reads
// the first three "-" separated parts and ignores any further ones, so
// "2024-01-02-backfill" is 2024-01-02. Inputs from callers go through
// ParseCalendarDate.
func ParseLeadingCalendarDate(value string) (int64, error) {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 4)
	if len(parts) < 3 {
		return 0, fmt.Errorf("calendar date %q: expected YYYY-MM-DD", value)
	}
	return dayFromParts(value, parts[:3])
}

func dayFromParts(value string, parts []string) (int64, error) {
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("calendar date %q: %w", value, err)
		}
		if n <= 0 {
			return 0, fmt.Errorf("calendar date %q: non-positive component", value)
		}
		nums[i] = n
	}
	return DayNumber(Date(nums[0], nums[1], nums[2])), nil
}

// DayNumber returns the UTC day number of t (days since the Unix epoch).
func DayNumber(t time.Time) int64 {
	return StartOfDay(t).Unix() / int64(Day/time.Second)
}

// FromDayNumber converts a UTC day number back to midnight of that day.
func FromDayNumber(n int64) time.Time {
	return time.Unix(n*int64(Day/time.Second), 0).UTC()
}

// DaysBetween returns the absolute number of whole UTC days between two times.
func DaysBetween(t1, t2 time.Time) int {
	d := DayNumber(t2) - DayNumber(t1)
	if d < 0 {
		d = -d
	}
	return int(d)
}

// IsSameDay checks if two times fall on the same UTC calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	return DayNumber(t1) == DayNumber(t2)
}

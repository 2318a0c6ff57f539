package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DailyChallengeCron creates the daily challenge shortly after UTC midnight.
const DailyChallengeCron = "1 0 * * *"

// CronExpression is a parsed five-field cron schedule:
//
//	minute hour day-of-month month day-of-week
//
// Each field accepts *, n, n-m, */s, n-m/s, n/s and comma-separated lists
// of those. Day-of-week runs 0-6 with 0 = Sunday. A time matches when every
// field matches.
type CronExpression struct {
	raw    string
	fields [5]uint64 // bit v set when value v is allowed
}

// cronField describes the legal range of one position.
type cronField struct {
	name     string
	min, max int
}

var cronFields = [5]cronField{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// ParseCronExpression parses expr, rejecting values outside a field's range,
// reversed ranges and zero steps.
func ParseCronExpression(expr string) (*CronExpression, error) {
	parts := strings.Fields(expr)
	if len(parts) != len(cronFields) {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(parts))
	}

	ce := &CronExpression{raw: expr}
	for i, part := range parts {
		mask, err := cronFields[i].parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field %q: %w", cronFields[i].name, part, err)
		}
		ce.fields[i] = mask
	}
	return ce, nil
}

func (f cronField) parse(field string) (uint64, error) {
	var mask uint64
	for _, term := range strings.Split(field, ",") {
		m, err := f.parseTerm(term)
		if err != nil {
			return 0, err
		}
		mask |= m
	}
	return mask, nil
}

// parseTerm handles one list element: a value or range, optionally stepped.
func (f cronField) parseTerm(term string) (uint64, error) {
	base, stepText, stepped := strings.Cut(term, "/")
	step := 1
	if stepped {
		s, err := strconv.Atoi(stepText)
		if err != nil || s <= 0 {
			return 0, fmt.Errorf("invalid step %q", stepText)
		}
		step = s
	}

	lo, hi := f.min, f.max
	switch {
	case base == "*":
	case strings.Contains(base, "-"):
		a, b, _ := strings.Cut(base, "-")
		var err error
		if lo, err = f.value(a); err != nil {
			return 0, err
		}
		if hi, err = f.value(b); err != nil {
			return 0, err
		}
		if lo > hi {
			return 0, fmt.Errorf("range %q runs backwards", base)
		}
	default:
		v, err := f.value(base)
		if err != nil {
			return 0, err
		}
		lo = v
		if !stepped {
			hi = v
		}
	}

	var mask uint64
	for v := lo; v <= hi; v += step {
		mask |= 1 << uint(v)
	}
	return mask, nil
}

func (f cronField) value(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	if v < f.min || v > f.max {
		return 0, fmt.Errorf("value %d out of range [%d-%d]", v, f.min, f.max)
	}
	return v, nil
}

// String returns the expression as written.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first whole minute strictly after after that matches,
// or the zero time when nothing matches within a leap year.
func (ce *CronExpression) Next(after time.Time) time.Time {
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(1, 0, 1)

	for t.Before(limit) {
		switch {
		case !ce.has(3, int(t.Month())):
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		case !ce.has(2, t.Day()) || !ce.has(4, int(t.Weekday())):
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
		case !ce.has(1, t.Hour()):
			t = t.Truncate(time.Hour).Add(time.Hour)
		case !ce.has(0, t.Minute()):
			t = t.Add(time.Minute)
		default:
			return t
		}
	}
	return time.Time{}
}

func (ce *CronExpression) has(field, v int) bool {
	return ce.fields[field]&(1<<uint(v)) != 0
}

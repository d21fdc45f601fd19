package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRule marks rules that cannot be expanded (missing or unknown
// pattern or weekday, out-of-range week of month).
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Pattern identifies how a rule repeats.
type Pattern string

const (
	Weekly   Pattern = "weekly"
	Biweekly Pattern = "biweekly"
	Monthly  Pattern = "monthly"
)

// Rule is an immutable description of a repeating schedule. RangeStart and
// RangeEnd are optional; zero values mean absent.
type Rule struct {
	Pattern     Pattern
	Day         time.Weekday
	WeekOfMonth int
	RangeStart  time.Time
	RangeEnd    time.Time
}

// ParsePattern converts an extraction payload pattern string into a Pattern.
func ParsePattern(value string) (Pattern, error) {
	switch Pattern(strings.ToLower(strings.TrimSpace(value))) {
	case Weekly:
		return Weekly, nil
	case Biweekly:
		return Biweekly, nil
	case Monthly:
		return Monthly, nil
	case "":
		return "", fmt.Errorf("%w: pattern missing", ErrInvalidRule)
	default:
		return "", fmt.Errorf("%w: unknown pattern %q", ErrInvalidRule, value)
	}
}

// ParseDay converts an extraction payload weekday string into a time.Weekday.
func ParseDay(value string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	case "sunday":
		return time.Sunday, nil
	case "":
		return 0, fmt.Errorf("%w: day_of_week missing", ErrInvalidRule)
	default:
		return 0, fmt.Errorf("%w: unknown day_of_week %q", ErrInvalidRule, value)
	}
}

// NewRule builds a validated Rule from extraction payload fields. weekOfMonth
// defaults to 1 when unset; it is only meaningful for monthly patterns.
func NewRule(pattern, dayOfWeek string, weekOfMonth int, rangeStart, rangeEnd time.Time) (Rule, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return Rule{}, err
	}
	day, err := ParseDay(dayOfWeek)
	if err != nil {
		return Rule{}, err
	}
	if p == Monthly {
		if weekOfMonth == 0 {
			weekOfMonth = 1
		}
		if weekOfMonth < 1 || weekOfMonth > 4 {
			return Rule{}, fmt.Errorf("%w: week_of_month %d out of range [1,4]", ErrInvalidRule, weekOfMonth)
		}
	}
	return Rule{
		Pattern:     p,
		Day:         day,
		WeekOfMonth: weekOfMonth,
		RangeStart:  midnight(rangeStart),
		RangeEnd:    midnight(rangeEnd),
	}, nil
}

// Calculate expands a rule into the ordered list of concrete dates, using the
// current day to resolve the default window. Deterministic given identical
// inputs and day.
func Calculate(rule Rule, seed time.Time) ([]time.Time, error) {
	return CalculateFrom(rule, seed, time.Now().UTC())
}

// CalculateFrom expands a rule relative to an explicit "today". The start date
// is resolved as rule.RangeStart, then seed, then today; the end date as
// rule.RangeEnd, then June 30 of the current year when today is June or
// earlier, else June 30 of next year. An empty window yields an empty slice,
// not an error.
func CalculateFrom(rule Rule, seed, today time.Time) ([]time.Time, error) {
	if err := validate(rule); err != nil {
		return nil, err
	}

	today = midnight(today)
	start := rule.RangeStart
	if start.IsZero() {
		start = midnight(seed)
	}
	if start.IsZero() {
		start = today
	}
	end := rule.RangeEnd
	if end.IsZero() {
		end = defaultEnd(today)
	}
	if end.Before(start) {
		return []time.Time{}, nil
	}

	switch rule.Pattern {
	case Weekly:
		return stepDates(start, end, rule.Day, 7), nil
	case Biweekly:
		// Fixed 14-day stepping from the first matching weekday, not
		// alternating calendar weeks.
		return stepDates(start, end, rule.Day, 14), nil
	case Monthly:
		return monthlyDates(start, end, rule.Day, rule.WeekOfMonth), nil
	default:
		return nil, fmt.Errorf("%w: unknown pattern %q", ErrInvalidRule, rule.Pattern)
	}
}

func validate(rule Rule) error {
	switch rule.Pattern {
	case Weekly, Biweekly:
	case Monthly:
		week := rule.WeekOfMonth
		if week < 1 || week > 4 {
			return fmt.Errorf("%w: week_of_month %d out of range [1,4]", ErrInvalidRule, week)
		}
	case "":
		return fmt.Errorf("%w: pattern missing", ErrInvalidRule)
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRule, rule.Pattern)
	}
	return nil
}

func defaultEnd(today time.Time) time.Time {
	year := today.Year()
	if today.Month() > time.June {
		year++
	}
	return time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
}

func stepDates(start, end time.Time, day time.Weekday, stepDays int) []time.Time {
	current := start
	for current.Weekday() != day {
		current = current.AddDate(0, 0, 1)
	}

	dates := []time.Time{}
	for !current.After(end) {
		dates = append(dates, current)
		current = current.AddDate(0, 0, stepDays)
	}
	return dates
}

func monthlyDates(start, end time.Time, day time.Weekday, weekOfMonth int) []time.Time {
	dates := []time.Time{}
	month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)

	for !month.After(end) {
		date, ok := nthWeekdayOfMonth(month, day, weekOfMonth)
		if ok && !date.Before(start) && !date.After(end) {
			dates = append(dates, date)
		}
		month = month.AddDate(0, 1, 0)
	}
	return dates
}

// nthWeekdayOfMonth finds the nth occurrence of a weekday within the month
// starting at monthStart, counting from day 1.
func nthWeekdayOfMonth(monthStart time.Time, day time.Weekday, n int) (time.Time, bool) {
	current := monthStart
	count := 0
	for current.Month() == monthStart.Month() {
		if current.Weekday() == day {
			count++
			if count == n {
				return current, true
			}
		}
		current = current.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

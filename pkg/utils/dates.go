package utils

import (
	"time"
)

// AddMonthsClamped advances a date by the given number of calendar months.
// If the target month is shorter than the original day of month, the day is
// clamped to the last day of the target month (Jan 31 + 1 month = Feb 28/29),
// unlike time.AddDate which would normalize into March.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	h, min, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}

// DaysBetween returns the number of calendar days from 'from' to 'to'.
// Dates are compared by wall-clock day, so a DST transition inside the span
// does not shave a day off. Negative when 'to' precedes 'from'.
func DaysBetween(from, to time.Time) int {
	return dayNumber(to) - dayNumber(from)
}

// dayNumber counts whole days since the Unix epoch for the date part of t.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// IsPastDue checks whether a due date has passed as of 'now'.
func IsPastDue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

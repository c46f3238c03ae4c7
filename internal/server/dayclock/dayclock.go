// Package dayclock maps a challenge start date and "today" to a 1-based day
// number. All functions are pure: the caller supplies today.
//
// Day numbers below 1 mean the challenge has not started yet; numbers above
// the duration mean it is finished.
package dayclock

import "time"

// Today returns the civil date of now in loc, as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}

// DateOf drops the clock part of t, keeping t's own year, month and day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// CurrentDayNumber is (today - start) + 1.
func CurrentDayNumber(start, today time.Time) int {
	return DaysBetween(start, today) + 1
}

// IsFinished reports whether today is past the last day of the challenge.
func IsFinished(start time.Time, durationDays int, today time.Time) bool {
	return CurrentDayNumber(start, today) > durationDays
}

// IsStarted reports whether day 1 has been reached.
func IsStarted(start, today time.Time) bool {
	return CurrentDayNumber(start, today) >= 1
}

// Package calendar implements the working-day arithmetic used for sprint
// planning. A working day is any day that is not a Saturday or Sunday.
package calendar

import "time"

// IsWorkingDay reports whether t falls on a weekday.
func IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// CountWorkingDays counts the working days between start and end, both
// inclusive, ignoring the time of day.
func CountWorkingDays(start, end time.Time) int {
	count := 0
	last := StartOfDay(end)
	for day := StartOfDay(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		if IsWorkingDay(day) {
			count++
		}
	}
	return count
}

// AddWorkingDays moves forward from start until n working days have passed.
// The start day itself is not counted.
func AddWorkingDays(start time.Time, n int) time.Time {
	result := start
	for added := 0; added < n; {
		result = result.AddDate(0, 0, 1)
		if IsWorkingDay(result) {
			added++
		}
	}
	return result
}

// WorkingDaysBetween lists the working days from start to end inclusive,
// keeping start's time of day.
func WorkingDaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if IsWorkingDay(day) {
			days = append(days, day)
		}
	}
	return days
}

package utils

import (
	"fmt"
	"time"
)

// MonthWindowStart returns the first instant of the calendar month containing t.
// The signal feed quota is counted from this boundary.
func MonthWindowStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// WeekWindowStart returns the Monday 00:00 of the ISO week containing t.
// The surge alert quota is counted from this boundary.
func WeekWindowStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -(weekday - 1))
}

// MonthKey returns the calendar month accounting key, e.g. "2026-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ISOWeekKey returns the ISO week accounting key, e.g. "2026-W35".
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

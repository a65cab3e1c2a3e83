package reset

import (
	"fmt"
	"time"
)

// WeekStart returns Monday 00:00 of the week containing t, in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// MonthStart returns the first day of the month containing t, at 00:00 in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// WeekKey is the ISO week of weekStart, e.g. "2026-W11".
func WeekKey(weekStart time.Time) string {
	y, w := weekStart.ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// MonthKey is the month of monthStart, e.g. "2026-03".
func MonthKey(monthStart time.Time) string {
	return monthStart.Format("2006-01")
}

// ClosedWeek returns the start of the week that ended at the last Monday boundary at or before now.
func ClosedWeek(now time.Time, loc *time.Location) time.Time {
	return WeekStart(now, loc).AddDate(0, 0, -7)
}

// ClosedMonth returns the start of the month that ended at the last month boundary at or before now.
func ClosedMonth(now time.Time, loc *time.Location) time.Time {
	return MonthStart(now, loc).AddDate(0, -1, 0)
}

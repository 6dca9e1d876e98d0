package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DayOfWeek is the uppercase English weekday used for recurring slots.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdayNames = map[time.Weekday]DayOfWeek{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// DayOfWeekFor maps a calendar date to its recurring-slot weekday.
func DayOfWeekFor(t time.Time) DayOfWeek {
	return weekdayNames[t.Weekday()]
}

// Valid reports whether the weekday belongs to the closed enumeration.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// ClockMinutes converts a 24-hour HH:MM clock string into minutes since
// midnight. "24:00" is accepted as the exclusive end of day.
func ClockMinutes(raw string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(raw, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	if h == 24 && m == 0 {
		return 24 * 60, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", raw)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM. 1440 renders as
// "24:00", the exclusive end of day.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// RangesOverlap reports whether the half-open minute ranges [aStart, aEnd)
// and [bStart, bEnd) intersect.
func RangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

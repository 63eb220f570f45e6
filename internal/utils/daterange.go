package utils

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for rental dates. Bounds are calendar days,
// interpreted in UTC.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Overlaps reports whether the closed intervals [startA, endA] and
// [startB, endB] conflict. Bounds are inclusive on both ends: a rental
// ending on day D conflicts with one starting on day D.
//
// This is the single overlap rule for the whole engine. Admission, the
// cancellation workflow and the bulk car search all call it instead of
// comparing dates themselves.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return !startA.After(endB) && !endA.Before(startB)
}

// BilledDays returns the number of days charged for the inclusive range
// [start, end]: a same-day rental bills one day, and partial days round up.
func BilledDays(start, end time.Time) int {
	d := end.Sub(start) + day
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

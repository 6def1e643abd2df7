// Package schedule implements the occurrence expansion and room conflict
// validation engine. Given a possibly repeating event occupying a classroom
// for a time-of-day window, it determines every calendar date on which the
// event actually occurs and detects collisions with other bookings of the
// same classroom.
//
// The engine is pure: it performs no I/O, holds no state between calls and
// is safe for concurrent use. Dates are naive local calendar days, carried
// as UTC midnights.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEventRange marks an event whose end date precedes its start
	// date. Expansion fails closed rather than guessing.
	ErrInvalidEventRange = errors.New("event end date precedes start date")

	// ErrUnknownInterval marks an unrecognized repeat interval.
	ErrUnknownInterval = errors.New("unknown repeat interval")

	// ErrMalformedTime marks a time-of-day value that is not a well-formed
	// 24h HH:MM:SS string.
	ErrMalformedTime = errors.New("malformed time of day")
)

// DateOnly truncates a timestamp to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ISODate renders a date as YYYY-MM-DD, the form used by excluded-date lists.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// parseTimeOfDay converts an HH:MM:SS string into seconds since midnight.
func parseTimeOfDay(raw string) (int, error) {
	t, err := time.Parse("15:04:05", raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, raw)
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

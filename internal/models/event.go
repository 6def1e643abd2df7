package models

import "time"

// RepeatInterval controls how an event's date range maps to occurrence dates.
type RepeatInterval string

const (
	RepeatNone    RepeatInterval = "none"
	RepeatDaily   RepeatInterval = "daily"
	RepeatWeekly  RepeatInterval = "weekly"
	RepeatMonthly RepeatInterval = "monthly"
	RepeatYearly  RepeatInterval = "yearly"
)

// Valid reports whether the interval is one of the supported values.
func (r RepeatInterval) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return true
	default:
		return false
	}
}

// Repeating reports whether the interval produces more than one occurrence.
func (r RepeatInterval) Repeating() bool {
	return r.Valid() && r != RepeatNone
}

// DateList is a set of ISO dates (YYYY-MM-DD) stored as a JSONB column.
type DateList = StringList

// Event is a bookable occupation of one classroom by one course for a
// time-of-day window, optionally repeating.
type Event struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	ClassroomID    string         `db:"classroom_id" json:"classroom_id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	TeacherID      *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	StartTime      string         `db:"start_time" json:"start_time"`
	EndTime        string         `db:"end_time" json:"end_time"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        time.Time      `db:"end_date" json:"end_date"`
	RepeatInterval RepeatInterval `db:"repeat_interval" json:"repeat_interval"`
	ExcludedDates  DateList       `db:"excluded_dates" json:"excluded_dates"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// EventFilter describes query params for listing events.
type EventFilter struct {
	ClassroomID string
	CourseID    string
	TeacherID   string
	From        *time.Time
	To          *time.Time
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

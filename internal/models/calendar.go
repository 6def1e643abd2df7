package models

import "time"

// UserCalendar is a user-owned named filter over courses. An empty course
// list means "all events".
type UserCalendar struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Name      string     `db:"name" json:"name"`
	CourseIDs StringList `db:"course_ids" json:"course_ids"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

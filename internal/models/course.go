package models

import "time"

// Course represents a taught course that books classroom time.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Semester  string    `db:"semester" json:"semester"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter defines filter criteria for listing courses.
type CourseFilter struct {
	Semester  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

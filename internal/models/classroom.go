package models

import "time"

// Classroom represents a bookable room.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Building  string    `db:"building" json:"building"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Equipment string    `db:"equipment" json:"equipment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter defines filter criteria for listing classrooms.
type ClassroomFilter struct {
	Building  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// CourseType distinguishes lecture hours from lab hours.
type CourseType string

const (
	CourseLecture CourseType = "LECTURE"
	CourseLab     CourseType = "LAB"
)

// Course represents a weekly hour requirement for one class.
type Course struct {
	ID           string     `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	Name         string     `db:"name" json:"name"`
	Type         CourseType `db:"type" json:"type"`
	Batch        string     `db:"batch" json:"batch"`
	Section      string     `db:"section" json:"section"`
	HoursPerWeek int        `db:"hours_per_week" json:"hours_per_week"`
	TeacherID    *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Batch     string
	Section   string
	Type      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Class identifies one (batch, section) pair that owns a timetable.
type Class struct {
	Batch   string `db:"batch" json:"batch"`
	Section string `db:"section" json:"section"`
}

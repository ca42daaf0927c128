package models

import "time"

// Slot is one placed atomic period in a weekly grid.
type Slot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"-"`
	Day         int       `db:"day" json:"day"`
	Period      int       `db:"period" json:"period"`
	CourseID    string    `db:"course_id" json:"course_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Timetable owns the weekly grid for one (batch, section) pair.
type Timetable struct {
	ID          string    `db:"id" json:"id"`
	Batch       string    `db:"batch" json:"batch"`
	Section     string    `db:"section" json:"section"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	Grid        []Slot    `db:"-" json:"grid"`
}

// GenerationResult summarises one generation run.
type GenerationResult struct {
	Batch         string    `json:"batch"`
	Section       string    `json:"section"`
	Placed        int       `json:"placed"`
	PlacedUnits   int       `json:"placed_units"`
	RequiredUnits int       `json:"required_units"`
	GeneratedAt   time.Time `json:"generated_at"`
}

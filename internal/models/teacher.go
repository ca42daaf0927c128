package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// UnavailableSlot marks one (day, period) a teacher cannot teach.
type UnavailableSlot struct {
	Day    int `json:"day" validate:"required,min=1,max=7"`
	Period int `json:"period" validate:"required,min=1"`
}

// Teacher represents an instructor record.
type Teacher struct {
	ID            string         `db:"id" json:"id"`
	Email         string         `db:"email" json:"email"`
	FullName      string         `db:"full_name" json:"full_name"`
	Phone         *string        `db:"phone" json:"phone,omitempty"`
	Skills        pq.StringArray `db:"skills" json:"skills"`
	MaxLoadPerDay int            `db:"max_load_per_day" json:"max_load_per_day"`
	Unavailable   types.JSONText `db:"unavailable" json:"unavailable"`
	Active        bool           `db:"active" json:"active"`
	UserID        *string        `db:"user_id" json:"user_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// UnavailableSlots decodes the unavailability column. A null or empty
// column means no restrictions.
func (t *Teacher) UnavailableSlots() ([]UnavailableSlot, error) {
	if len(t.Unavailable) == 0 || string(t.Unavailable) == "null" {
		return nil, nil
	}
	var slots []UnavailableSlot
	if err := t.Unavailable.Unmarshal(&slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Skill     string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableRepository handles persistence for generated timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new repository instance.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// FindByClass returns the timetable for one (batch, section) including its grid.
func (r *TimetableRepository) FindByClass(ctx context.Context, batch, section string) (*models.Timetable, error) {
	const query = `SELECT id, batch, section, generated_at, created_at, updated_at FROM timetables WHERE batch = $1 AND section = $2`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, batch, section); err != nil {
		return nil, err
	}

	const slotQuery = `SELECT id, timetable_id, day, period, course_id, teacher_id, room_id, created_at
		FROM timetable_slots WHERE timetable_id = $1 ORDER BY day ASC, period ASC`
	if err := r.db.SelectContext(ctx, &timetable.Grid, slotQuery, timetable.ID); err != nil {
		return nil, fmt.Errorf("load timetable slots: %w", err)
	}
	return &timetable, nil
}

// ListSlotsByTeacher returns every slot assigned to a teacher across all classes.
func (r *TimetableRepository) ListSlotsByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error) {
	const query = `SELECT s.id, s.timetable_id, s.day, s.period, s.course_id, s.teacher_id, s.room_id, s.created_at
		FROM timetable_slots s WHERE s.teacher_id = $1 ORDER BY s.day ASC, s.period ASC`
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher slots: %w", err)
	}
	return slots, nil
}

// ReplaceGrid upserts the timetable row for (batch, section) and replaces its
// grid wholesale within a transaction. Previous slots are discarded, never merged.
func (r *TimetableRepository) ReplaceGrid(ctx context.Context, timetable *models.Timetable, slots []models.Slot) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now
	if timetable.GeneratedAt.IsZero() {
		timetable.GeneratedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace grid: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO timetables (id, batch, section, generated_at, created_at, updated_at)
		VALUES (:id, :batch, :section, :generated_at, :created_at, :updated_at)
		ON CONFLICT (batch, section) DO UPDATE SET generated_at = EXCLUDED.generated_at, updated_at = EXCLUDED.updated_at
		RETURNING id`
	rows, err := tx.NamedQuery(upsert, timetable)
	if err != nil {
		return fmt.Errorf("upsert timetable: %w", err)
	}
	if rows.Next() {
		if err = rows.Scan(&timetable.ID); err != nil {
			rows.Close()
			return fmt.Errorf("scan timetable id: %w", err)
		}
	}
	rows.Close()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_slots WHERE timetable_id = $1`, timetable.ID); err != nil {
		return fmt.Errorf("clear timetable slots: %w", err)
	}

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.TimetableID = timetable.ID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		const insert = `INSERT INTO timetable_slots (id, timetable_id, day, period, course_id, teacher_id, room_id, created_at)
			VALUES (:id, :timetable_id, :day, :period, :course_id, :teacher_id, :room_id, :created_at)`
		if _, err = tx.NamedExecContext(ctx, insert, slot); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace grid: %w", err)
	}
	timetable.Grid = slots
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// SettingsRepository handles persistence for the scheduling settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new repository instance.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the single settings row. sql.ErrNoRows when none exists.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	const query = `SELECT id, working_days, day_config, created_at, updated_at FROM settings ORDER BY created_at ASC LIMIT 1`
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert creates or replaces the settings row.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	const query = `INSERT INTO settings (id, working_days, day_config, created_at, updated_at)
		VALUES (:id, :working_days, :day_config, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET working_days = EXCLUDED.working_days,
			day_config = EXCLUDED.day_config, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

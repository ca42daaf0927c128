package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Upsert(ctx context.Context, settings *models.Settings) error
}

// UpdateSettingsRequest replaces the scheduling configuration.
type UpdateSettingsRequest struct {
	WorkingDays []int              `json:"working_days" validate:"required,min=1,max=7,dive,min=1,max=7"`
	DayConfig   []models.DayConfig `json:"day_config" validate:"required,min=1,dive"`
}

// SettingsService manages the global scheduling configuration.
type SettingsService struct {
	repo      settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, validator: validate, logger: logger}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduling settings not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update validates and replaces the scheduling configuration.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*models.Settings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := validateDayConfig(req); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req.DayConfig)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode day config")
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
		}
		settings = &models.Settings{}
	}

	days := make(pq.Int64Array, 0, len(req.WorkingDays))
	for _, d := range req.WorkingDays {
		days = append(days, int64(d))
	}
	settings.WorkingDays = days
	settings.DayConfig = payload

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	return settings, nil
}

// validateDayConfig checks that every working day has exactly one config
// entry and that break rules do not reach outside the day's period range.
func validateDayConfig(req UpdateSettingsRequest) error {
	configured := make(map[int]models.DayConfig, len(req.DayConfig))
	for _, dc := range req.DayConfig {
		if _, dup := configured[dc.Day]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate day config for day %d", dc.Day))
		}
		configured[dc.Day] = dc
	}
	for _, day := range req.WorkingDays {
		dc, ok := configured[day]
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing day config for working day %d", day))
		}
		for _, rule := range []*models.BreakRule{dc.TeaBreak, dc.LunchBreak} {
			if rule == nil {
				continue
			}
			if rule.StartAfterPeriod != nil && (*rule.StartAfterPeriod < 0 || *rule.StartAfterPeriod >= dc.Periods) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("break start_after_period out of range on day %d", day))
			}
			if rule.StartPeriod != nil && (*rule.StartPeriod < 1 || *rule.StartPeriod > dc.Periods) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("break start_period out of range on day %d", day))
			}
		}
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableReader interface {
	FindByClass(ctx context.Context, batch, section string) (*models.Timetable, error)
	ListSlotsByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error)
}

type timetableTeacherLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
}

// TimetableService serves generated grids with a read-through cache.
type TimetableService struct {
	repo     timetableReader
	teachers timetableTeacherLookup
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(repo timetableReader, teachers timetableTeacherLookup, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, teachers: teachers, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// GetByClass returns the timetable for one (batch, section).
func (s *TimetableService) GetByClass(ctx context.Context, batch, section string) (*models.Timetable, error) {
	if batch == "" || section == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch and section are required")
	}

	key := fmt.Sprintf("timetable:%s:%s", batch, section)
	var cached models.Timetable
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	timetable, err := s.repo.FindByClass(ctx, batch, section)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable generated for this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	if err := s.cache.Set(ctx, key, timetable, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache timetable", zap.String("key", key), zap.Error(err))
	}
	return timetable, nil
}

// MySchedule returns every placed slot for the teacher linked to the
// authenticated user, across all classes.
func (s *TimetableService) MySchedule(ctx context.Context, claims *models.JWTClaims) ([]models.Slot, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}

	teacher, err := s.teachers.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	key := fmt.Sprintf("timetable:teacher:%s", teacher.ID)
	var cached []models.Slot
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	slots, err := s.repo.ListSlotsByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}

	if err := s.cache.Set(ctx, key, slots, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache teacher schedule", zap.String("key", key), zap.Error(err))
	}
	return slots, nil
}

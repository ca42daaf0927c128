package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type generatorSettingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type generatorCourseReader interface {
	ListByClass(ctx context.Context, batch, section string) ([]models.Course, error)
}

type generatorRoomReader interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type generatorTeacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type timetableWriter interface {
	ReplaceGrid(ctx context.Context, timetable *models.Timetable, slots []models.Slot) error
}

// GeneratorServiceConfig tunes generation behaviour.
type GeneratorServiceConfig struct {
	// Seed fixes the candidate-shuffle randomness when non-zero, making
	// runs reproducible. Zero seeds each run from the wall clock.
	Seed int64
	// DefaultMaxLoadPerDay applies to teachers without an explicit limit.
	DefaultMaxLoadPerDay int
}

// GenerateRequest identifies the class to build a timetable for.
type GenerateRequest struct {
	Batch   string `json:"batch" validate:"required,max=20"`
	Section string `json:"section" validate:"required,max=10"`
}

// GeneratorService drives timetable generation runs. Runs for the same
// (batch, section) are serialized through a per-key mutex so one
// generation always fully replaces the grid; runs for different classes
// proceed in parallel.
type GeneratorService struct {
	settings   generatorSettingsReader
	courses    generatorCourseReader
	rooms      generatorRoomReader
	teachers   generatorTeacherReader
	timetables timetableWriter
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     GeneratorServiceConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGeneratorService constructs a GeneratorService.
func NewGeneratorService(
	settings generatorSettingsReader,
	courses generatorCourseReader,
	rooms generatorRoomReader,
	teachers generatorTeacherReader,
	timetables timetableWriter,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config GeneratorServiceConfig,
) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultMaxLoadPerDay <= 0 {
		config.DefaultMaxLoadPerDay = defaultMaxLoadPerDay
	}
	return &GeneratorService{
		settings:   settings,
		courses:    courses,
		rooms:      rooms,
		teachers:   teachers,
		timetables: timetables,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Generate builds and persists a fresh weekly grid for one class. The
// previous grid is discarded wholesale, never merged. Units that cannot
// be placed are dropped silently; the returned counts expose the
// shortfall.
func (s *GeneratorService) Generate(ctx context.Context, req GenerateRequest) (*models.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	batch := strings.TrimSpace(req.Batch)
	section := strings.ToUpper(strings.TrimSpace(req.Section))

	lock := s.lockFor(batch + "|" + section)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	result, err := s.run(ctx, batch, section)
	if err != nil {
		s.metrics.ObserveGeneration("error", 0, 0, time.Since(start))
		return nil, err
	}
	s.metrics.ObserveGeneration("ok", result.Placed, result.RequiredUnits-result.PlacedUnits, time.Since(start))

	s.logger.Info("timetable generated",
		zap.String("batch", batch),
		zap.String("section", section),
		zap.Int("placed", result.Placed),
		zap.Int("placed_units", result.PlacedUnits),
		zap.Int("required_units", result.RequiredUnits),
	)
	return result, nil
}

func (s *GeneratorService) run(ctx context.Context, batch, section string) (*models.GenerationResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "scheduling settings not configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	days, err := buildDays(settings)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "invalid day configuration")
	}

	courses, err := s.courses.ListByClass(ctx, batch, section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	input := scheduler.Input{Days: days}
	for _, c := range courses {
		sc := scheduler.Course{
			ID:    c.ID,
			Code:  c.Code,
			Lab:   c.Type == models.CourseLab,
			Hours: c.HoursPerWeek,
		}
		if c.TeacherID != nil {
			sc.TeacherID = *c.TeacherID
		}
		input.Courses = append(input.Courses, sc)
	}
	for _, r := range rooms {
		input.Rooms = append(input.Rooms, scheduler.Room{ID: r.ID, Lab: r.Type == models.RoomLab})
	}
	for i := range teachers {
		t := &teachers[i]
		slots, err := t.UnavailableSlots()
		if err != nil {
			s.logger.Warn("skipping malformed unavailability", zap.String("teacher_id", t.ID), zap.Error(err))
		}
		st := scheduler.Teacher{ID: t.ID, Skills: t.Skills, MaxPerDay: t.MaxLoadPerDay}
		if st.MaxPerDay <= 0 {
			st.MaxPerDay = s.config.DefaultMaxLoadPerDay
		}
		for _, u := range slots {
			st.Unavailable = append(st.Unavailable, scheduler.SlotRef{Day: u.Day, Period: u.Period})
		}
		input.Teachers = append(input.Teachers, st)
	}

	built := scheduler.Build(input, s.newRand())

	grid := make([]models.Slot, 0, len(built.Slots))
	for _, slot := range built.Slots {
		grid = append(grid, models.Slot{
			Day:       slot.Day,
			Period:    slot.Period,
			CourseID:  slot.CourseID,
			TeacherID: slot.TeacherID,
			RoomID:    slot.RoomID,
		})
	}

	timetable := &models.Timetable{Batch: batch, Section: section, GeneratedAt: time.Now().UTC()}
	if err := s.timetables.ReplaceGrid(ctx, timetable, grid); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
	}

	if err := s.cache.Invalidate(ctx, fmt.Sprintf("timetable:%s:%s*", batch, section)); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "timetable:teacher:*"); err != nil {
		s.logger.Warn("teacher view cache invalidation failed", zap.Error(err))
	}

	return &models.GenerationResult{
		Batch:         batch,
		Section:       section,
		Placed:        built.Placed,
		PlacedUnits:   built.PlacedUnits,
		RequiredUnits: built.RequiredUnits,
		GeneratedAt:   timetable.GeneratedAt,
	}, nil
}

func (s *GeneratorService) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *GeneratorService) newRand() *rand.Rand {
	seed := s.config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// buildDays resolves the working-day order and normalizes every break
// rule into its canonical window. Working days without a config entry
// are rejected since the search cannot know their period count.
func buildDays(settings *models.Settings) ([]scheduler.Day, error) {
	configs, err := settings.DayConfigs()
	if err != nil {
		return nil, fmt.Errorf("decode day config: %w", err)
	}
	byDay := make(map[int]models.DayConfig, len(configs))
	for _, dc := range configs {
		byDay[dc.Day] = dc
	}

	days := make([]scheduler.Day, 0, len(settings.WorkingDays))
	for _, raw := range settings.WorkingDays {
		dc, ok := byDay[int(raw)]
		if !ok {
			return nil, fmt.Errorf("working day %d has no day config", raw)
		}
		if dc.Periods <= 0 {
			return nil, fmt.Errorf("working day %d has no periods", raw)
		}
		day := scheduler.Day{Number: dc.Day, Periods: dc.Periods}
		for _, rule := range []*models.BreakRule{dc.TeaBreak, dc.LunchBreak} {
			if rule == nil {
				continue
			}
			window := scheduler.NormalizeBreak(&scheduler.BreakRule{
				StartAfterPeriod: rule.StartAfterPeriod,
				Minutes:          rule.Minutes,
				StartPeriod:      rule.StartPeriod,
				Length:           rule.Length,
			})
			if window.Length > 0 {
				day.Breaks = append(day.Breaks, window)
			}
		}
		days = append(days, day)
	}
	return days, nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type settingsReaderStub struct {
	settings *models.Settings
	err      error
}

func (s settingsReaderStub) Get(ctx context.Context) (*models.Settings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.settings, nil
}

type courseReaderStub struct {
	courses []models.Course
	err     error
}

func (s courseReaderStub) ListByClass(ctx context.Context, batch, section string) ([]models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.courses, nil
}

type roomReaderStub struct {
	rooms []models.Room
}

func (s roomReaderStub) ListAll(ctx context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type teacherReaderStub struct {
	teachers []models.Teacher
}

func (s teacherReaderStub) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

type timetableWriterStub struct {
	timetable *models.Timetable
	slots     []models.Slot
	err       error
}

func (s *timetableWriterStub) ReplaceGrid(ctx context.Context, timetable *models.Timetable, slots []models.Slot) error {
	if s.err != nil {
		return s.err
	}
	s.timetable = timetable
	s.slots = slots
	return nil
}

type cacheRepoStub struct {
	deleted []string
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}

func generatorSettings(t *testing.T, periods int) *models.Settings {
	t.Helper()
	payload, err := json.Marshal([]models.DayConfig{{Day: 1, Periods: periods}})
	require.NoError(t, err)
	return &models.Settings{WorkingDays: pq.Int64Array{1}, DayConfig: payload}
}

func newGeneratorForTest(settings settingsReaderStub, courses courseReaderStub, rooms roomReaderStub, teachers teacherReaderStub, writer *timetableWriterStub, cache *CacheService) *GeneratorService {
	return NewGeneratorService(settings, courses, rooms, teachers, writer, cache, nil, validator.New(), nil,
		GeneratorServiceConfig{Seed: 42})
}

func TestGenerateRequiresSettings(t *testing.T) {
	svc := newGeneratorForTest(settingsReaderStub{err: sql.ErrNoRows}, courseReaderStub{}, roomReaderStub{}, teacherReaderStub{}, &timetableWriterStub{}, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{Batch: "2026", Section: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestGenerateValidatesPayload(t *testing.T) {
	svc := newGeneratorForTest(settingsReaderStub{}, courseReaderStub{}, roomReaderStub{}, teacherReaderStub{}, &timetableWriterStub{}, nil)

	_, err := svc.Generate(context.Background(), GenerateRequest{Batch: "", Section: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGeneratePlacesAndPersists(t *testing.T) {
	writer := &timetableWriterStub{}
	svc := newGeneratorForTest(
		settingsReaderStub{settings: generatorSettings(t, 4)},
		courseReaderStub{courses: []models.Course{{
			ID: "c1", Code: "MATH", Type: models.CourseLecture,
			Batch: "2026", Section: "A", HoursPerWeek: 2,
		}}},
		roomReaderStub{rooms: []models.Room{{ID: "r1", Type: models.RoomLecture}}},
		teacherReaderStub{teachers: []models.Teacher{{ID: "t1", Skills: pq.StringArray{"MATH"}, MaxLoadPerDay: 6}}},
		writer,
		nil,
	)

	result, err := svc.Generate(context.Background(), GenerateRequest{Batch: "2026", Section: "a"})
	require.NoError(t, err)

	assert.Equal(t, "2026", result.Batch)
	assert.Equal(t, "A", result.Section, "section should be uppercased")
	assert.Equal(t, 2, result.Placed)
	assert.Equal(t, 2, result.RequiredUnits)
	assert.Equal(t, 2, result.PlacedUnits)

	require.NotNil(t, writer.timetable)
	assert.Equal(t, "2026", writer.timetable.Batch)
	assert.Len(t, writer.slots, 2)
	for _, slot := range writer.slots {
		assert.Equal(t, "c1", slot.CourseID)
		assert.Equal(t, "t1", slot.TeacherID)
		assert.Equal(t, "r1", slot.RoomID)
	}
}

func TestGenerateReportsShortfall(t *testing.T) {
	// One day with two periods cannot host four lecture hours.
	writer := &timetableWriterStub{}
	svc := newGeneratorForTest(
		settingsReaderStub{settings: generatorSettings(t, 2)},
		courseReaderStub{courses: []models.Course{{
			ID: "c1", Code: "PHY", Type: models.CourseLecture,
			Batch: "2026", Section: "A", HoursPerWeek: 4,
		}}},
		roomReaderStub{rooms: []models.Room{{ID: "r1", Type: models.RoomLecture}}},
		teacherReaderStub{teachers: []models.Teacher{{ID: "t1", Skills: pq.StringArray{"PHY"}, MaxLoadPerDay: 6}}},
		writer,
		nil,
	)

	result, err := svc.Generate(context.Background(), GenerateRequest{Batch: "2026", Section: "A"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Placed)
	assert.Equal(t, 4, result.RequiredUnits)
	assert.Equal(t, 2, result.PlacedUnits)
}

func TestGenerateInvalidatesCaches(t *testing.T) {
	cacheRepo := &cacheRepoStub{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	writer := &timetableWriterStub{}
	svc := newGeneratorForTest(
		settingsReaderStub{settings: generatorSettings(t, 4)},
		courseReaderStub{courses: []models.Course{{
			ID: "c1", Code: "CHEM", Type: models.CourseLecture,
			Batch: "2026", Section: "A", HoursPerWeek: 1,
		}}},
		roomReaderStub{rooms: []models.Room{{ID: "r1", Type: models.RoomLecture}}},
		teacherReaderStub{teachers: []models.Teacher{{ID: "t1", Skills: pq.StringArray{"CHEM"}, MaxLoadPerDay: 6}}},
		writer,
		cache,
	)

	_, err := svc.Generate(context.Background(), GenerateRequest{Batch: "2026", Section: "A"})
	require.NoError(t, err)
	assert.Contains(t, cacheRepo.deleted, "timetable:2026:A*")
	assert.Contains(t, cacheRepo.deleted, "timetable:teacher:*")
}

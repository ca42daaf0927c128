package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableReaderStub struct {
	timetable *models.Timetable
	slots     []models.Slot
	findCalls int
}

func (s *timetableReaderStub) FindByClass(ctx context.Context, batch, section string) (*models.Timetable, error) {
	s.findCalls++
	if s.timetable == nil {
		return nil, sql.ErrNoRows
	}
	return s.timetable, nil
}

func (s *timetableReaderStub) ListSlotsByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error) {
	return s.slots, nil
}

type teacherLookupStub struct {
	byUser map[string]models.Teacher
}

func (s teacherLookupStub) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	if t, ok := s.byUser[userID]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

type jsonCacheStub struct {
	data map[string][]byte
}

func (s *jsonCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *jsonCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = raw
	return nil
}

func (s *jsonCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

func TestTimetableGetByClassRequiresIdentity(t *testing.T) {
	svc := NewTimetableService(&timetableReaderStub{}, teacherLookupStub{}, nil, nil, time.Minute)
	_, err := svc.GetByClass(context.Background(), "", "A")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableGetByClassNotFound(t *testing.T) {
	svc := NewTimetableService(&timetableReaderStub{}, teacherLookupStub{}, nil, nil, time.Minute)
	_, err := svc.GetByClass(context.Background(), "2026", "A")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableGetByClassServesFromCache(t *testing.T) {
	repo := &timetableReaderStub{timetable: &models.Timetable{
		ID: "tt1", Batch: "2026", Section: "A",
		Grid: []models.Slot{{Day: 1, Period: 1, CourseID: "c1", TeacherID: "t1", RoomID: "r1"}},
	}}
	cache := NewCacheService(&jsonCacheStub{}, nil, time.Minute, nil, true)
	svc := NewTimetableService(repo, teacherLookupStub{}, cache, nil, time.Minute)

	first, err := svc.GetByClass(context.Background(), "2026", "A")
	require.NoError(t, err)
	second, err := svc.GetByClass(context.Background(), "2026", "A")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.findCalls, "second read should hit the cache")
}

func TestMyScheduleRequiresTeacherProfile(t *testing.T) {
	svc := NewTimetableService(&timetableReaderStub{}, teacherLookupStub{}, nil, nil, time.Minute)
	_, err := svc.MySchedule(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMyScheduleReturnsTeacherSlots(t *testing.T) {
	repo := &timetableReaderStub{slots: []models.Slot{
		{Day: 1, Period: 2, CourseID: "c1", TeacherID: "t1", RoomID: "r1"},
		{Day: 3, Period: 4, CourseID: "c2", TeacherID: "t1", RoomID: "r2"},
	}}
	lookup := teacherLookupStub{byUser: map[string]models.Teacher{"u1": {ID: "t1"}}}
	svc := NewTimetableService(repo, lookup, nil, nil, time.Minute)

	slots, err := svc.MySchedule(context.Background(), &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "t1", slots[0].TeacherID)
}

func TestMyScheduleMissingClaims(t *testing.T) {
	svc := NewTimetableService(&timetableReaderStub{}, teacherLookupStub{}, nil, nil, time.Minute)
	_, err := svc.MySchedule(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

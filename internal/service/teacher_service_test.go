package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type teacherRepoStub struct {
	teachers    map[string]models.Teacher
	byUser      map[string]string
	emailExists bool
	updated     map[string][]byte
}

func (s *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	out := make([]models.Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := s.teachers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	if id, ok := s.byUser[userID]; ok {
		return s.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return s.emailExists, nil
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if s.teachers == nil {
		s.teachers = make(map[string]models.Teacher)
	}
	teacher.ID = "t-new"
	s.teachers[teacher.ID] = *teacher
	return nil
}

func (s *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	s.teachers[teacher.ID] = *teacher
	return nil
}

func (s *teacherRepoStub) UpdateUnavailability(ctx context.Context, id string, unavailable []byte) error {
	if _, ok := s.teachers[id]; !ok {
		return sql.ErrNoRows
	}
	if s.updated == nil {
		s.updated = make(map[string][]byte)
	}
	s.updated[id] = unavailable
	return nil
}

func (s *teacherRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.teachers, id)
	return nil
}

func TestTeacherCreateNormalizesSkills(t *testing.T) {
	repo := &teacherRepoStub{}
	svc := NewTeacherService(repo, validator.New(), nil)

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:    "jane@example.com",
		FullName: "Jane Doe",
		Skills:   []string{"math", "MATH", " physics "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"MATH", "PHYSICS"}, []string(teacher.Skills))
	assert.Equal(t, defaultMaxLoadPerDay, teacher.MaxLoadPerDay)
	assert.True(t, teacher.Active)
}

func TestTeacherCreateRejectsDuplicateEmail(t *testing.T) {
	svc := NewTeacherService(&teacherRepoStub{emailExists: true}, validator.New(), nil)
	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email: "jane@example.com", FullName: "Jane Doe",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherUpdateUnavailabilityAsAdmin(t *testing.T) {
	repo := &teacherRepoStub{teachers: map[string]models.Teacher{"t1": {ID: "t1"}}}
	svc := NewTeacherService(repo, validator.New(), nil)

	err := svc.UpdateUnavailability(context.Background(), "t1", UpdateUnavailabilityRequest{
		Unavailable: []models.UnavailableSlot{{Day: 1, Period: 3}},
	}, &models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	var saved []models.UnavailableSlot
	require.NoError(t, json.Unmarshal(repo.updated["t1"], &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, 1, saved[0].Day)
	assert.Equal(t, 3, saved[0].Period)
}

func TestTeacherUpdateUnavailabilityOwnProfile(t *testing.T) {
	repo := &teacherRepoStub{
		teachers: map[string]models.Teacher{"t1": {ID: "t1"}},
		byUser:   map[string]string{"u1": "t1"},
	}
	svc := NewTeacherService(repo, validator.New(), nil)

	err := svc.UpdateUnavailability(context.Background(), "t1", UpdateUnavailabilityRequest{},
		&models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	require.NoError(t, err)
}

func TestTeacherUpdateUnavailabilityForbiddenForOthers(t *testing.T) {
	repo := &teacherRepoStub{
		teachers: map[string]models.Teacher{"t1": {ID: "t1"}, "t2": {ID: "t2"}},
		byUser:   map[string]string{"u1": "t1"},
	}
	svc := NewTeacherService(repo, validator.New(), nil)

	err := svc.UpdateUnavailability(context.Background(), "t2", UpdateUnavailabilityRequest{},
		&models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTeacherUpdateUnavailabilityMissingTeacher(t *testing.T) {
	svc := NewTeacherService(&teacherRepoStub{}, validator.New(), nil)
	err := svc.UpdateUnavailability(context.Background(), "ghost", UpdateUnavailabilityRequest{},
		&models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

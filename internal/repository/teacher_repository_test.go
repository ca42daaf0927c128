package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func teacherRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "full_name", "phone", "skills", "max_load_per_day", "unavailable", "active", "user_id", "created_at", "updated_at"})
}

func TestTeacherRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := teacherRows().
		AddRow("t1", "a@example.com", "Teacher A", nil, []byte("{MATH}"), 6, []byte(`[{"day":1,"period":1}]`), true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE active = TRUE ORDER BY full_name ASC")).
		WillReturnRows(rows)

	teachers, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 1)

	slots, err := teachers[0].UnavailableSlots()
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, slots[0].Day)
	assert.Equal(t, 1, slots[0].Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateDefaultsUnavailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), "a@example.com", "Teacher A", sqlmock.AnyArg(), sqlmock.AnyArg(), 6, []byte("[]"), true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{Email: "a@example.com", FullName: "Teacher A", MaxLoadPerDay: 6, Active: true}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateUnavailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET unavailable = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("t1", []byte(`[{"day":2,"period":3}]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateUnavailability(context.Background(), "t1", []byte(`[{"day":2,"period":3}]`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateUnavailabilityMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET unavailable = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("missing", []byte("[]"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateUnavailability(context.Background(), "missing", []byte("[]"))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

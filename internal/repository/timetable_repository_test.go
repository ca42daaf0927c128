package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestTimetableRepositoryFindByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, batch, section, generated_at, created_at, updated_at FROM timetables WHERE batch = $1 AND section = $2")).
		WithArgs("2026", "A").
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch", "section", "generated_at", "created_at", "updated_at"}).
			AddRow("tt1", "2026", "A", time.Now(), time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_slots WHERE timetable_id = $1 ORDER BY day ASC, period ASC")).
		WithArgs("tt1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "timetable_id", "day", "period", "course_id", "teacher_id", "room_id", "created_at"}).
			AddRow("s1", "tt1", 1, 1, "c1", "t1", "r1", time.Now()).
			AddRow("s2", "tt1", 1, 2, "c1", "t1", "r1", time.Now()))

	timetable, err := repo.FindByClass(context.Background(), "2026", "A")
	require.NoError(t, err)
	assert.Equal(t, "tt1", timetable.ID)
	assert.Len(t, timetable.Grid, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceGrid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO timetables").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tt1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_slots WHERE timetable_id = $1")).
		WithArgs("tt1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO timetable_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	timetable := &models.Timetable{Batch: "2026", Section: "A"}
	slots := []models.Slot{
		{Day: 1, Period: 1, CourseID: "c1", TeacherID: "t1", RoomID: "r1"},
		{Day: 1, Period: 2, CourseID: "c1", TeacherID: "t1", RoomID: "r1"},
	}
	require.NoError(t, repo.ReplaceGrid(context.Background(), timetable, slots))
	assert.Equal(t, "tt1", timetable.ID)
	assert.Len(t, timetable.Grid, 2)
	assert.Equal(t, "tt1", timetable.Grid[0].TimetableID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceGridEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO timetables").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tt1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_slots WHERE timetable_id = $1")).
		WithArgs("tt1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	timetable := &models.Timetable{Batch: "2026", Section: "A"}
	require.NoError(t, repo.ReplaceGrid(context.Background(), timetable, nil))
	assert.Empty(t, timetable.Grid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListSlotsByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_slots s WHERE s.teacher_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "timetable_id", "day", "period", "course_id", "teacher_id", "room_id", "created_at"}).
			AddRow("s1", "tt1", 1, 4, "c1", "t1", "r1", time.Now()))

	slots, err := repo.ListSlotsByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

type exportJobRepoStub struct {
	jobs     map[string]models.ExportJob
	statuses []models.ExportStatus
	failed   string
	finished string
}

func (s *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if s.jobs == nil {
		s.jobs = make(map[string]models.ExportJob)
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	job.Status = models.ExportStatusQueued
	s.jobs[job.ID] = *job
	return nil
}

func (s *exportJobRepoStub) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := s.jobs[id]; ok {
		return &job, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exportJobRepoStub) ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error) {
	out := make([]models.ExportJob, 0)
	for _, job := range s.jobs {
		if job.CreatedBy == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *exportJobRepoStub) UpdateStatus(ctx context.Context, id string, status models.ExportStatus, progress int) error {
	job := s.jobs[id]
	job.Status = status
	job.Progress = progress
	s.jobs[id] = job
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *exportJobRepoStub) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	job := s.jobs[id]
	job.Status = models.ExportStatusFinished
	job.Progress = 100
	job.ResultURL = &resultURL
	job.FinishedAt = &finishedAt
	s.jobs[id] = job
	s.finished = id
	return nil
}

func (s *exportJobRepoStub) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	job := s.jobs[id]
	job.Status = models.ExportStatusFailed
	job.ErrorMessage = &message
	job.FinishedAt = &finishedAt
	s.jobs[id] = job
	s.failed = id
	return nil
}

type enqueuerStub struct {
	enqueued []jobs.Job
	err      error
}

func (s *enqueuerStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, job)
	return nil
}

func newExporterForTest(t *testing.T, timetables timetableReader) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(timetables,
		courseReaderStub{courses: []models.Course{{ID: "c1", Code: "MATH"}}},
		teacherReaderStub{teachers: []models.Teacher{{ID: "t1", FullName: "Jane Doe"}}},
		roomReaderStub{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}},
		store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, nil, nil, nil)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin}
}

func TestCreateExportJobQueues(t *testing.T) {
	repo := &exportJobRepoStub{}
	queue := &enqueuerStub{}
	svc := NewExportJobsService(repo, queue, newExporterForTest(t, &timetableReaderStub{}), validator.New(), nil)

	job, err := svc.CreateJob(context.Background(), CreateExportJobRequest{
		Batch: "2026", Section: "a", Format: "csv",
	}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, "A", job.Params.Section)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func TestCreateExportJobEnqueueFailureMarksFailed(t *testing.T) {
	repo := &exportJobRepoStub{}
	queue := &enqueuerStub{err: errors.New("queue stopped")}
	svc := NewExportJobsService(repo, queue, newExporterForTest(t, &timetableReaderStub{}), validator.New(), nil)

	_, err := svc.CreateJob(context.Background(), CreateExportJobRequest{
		Batch: "2026", Section: "A", Format: "pdf",
	}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, "job-1", repo.failed)
}

func TestCreateExportJobRejectsUnknownFormat(t *testing.T) {
	svc := NewExportJobsService(&exportJobRepoStub{}, &enqueuerStub{}, newExporterForTest(t, &timetableReaderStub{}), validator.New(), nil)
	_, err := svc.CreateJob(context.Background(), CreateExportJobRequest{
		Batch: "2026", Section: "A", Format: "xlsx",
	}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetStatusHidesForeignJobs(t *testing.T) {
	repo := &exportJobRepoStub{jobs: map[string]models.ExportJob{
		"job-1": {ID: "job-1", CreatedBy: "someone-else", Status: models.ExportStatusQueued},
	}}
	svc := NewExportJobsService(repo, &enqueuerStub{}, newExporterForTest(t, &timetableReaderStub{}), validator.New(), nil)

	_, err := svc.GetStatus(context.Background(), "job-1", &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	job, err := svc.GetStatus(context.Background(), "job-1", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestExportWorkerFinishesCSVJob(t *testing.T) {
	timetables := &timetableReaderStub{timetable: &models.Timetable{
		ID: "tt1", Batch: "2026", Section: "A",
		Grid: []models.Slot{{Day: 1, Period: 1, CourseID: "c1", TeacherID: "t1", RoomID: "r1"}},
	}}
	exporter := newExporterForTest(t, timetables)
	repo := &exportJobRepoStub{jobs: map[string]models.ExportJob{
		"job-1": {
			ID:     "job-1",
			Params: models.ExportJobParams{Batch: "2026", Section: "A", Format: models.ExportFormatCSV},
			Status: models.ExportStatusQueued,
		},
	}}
	worker := NewExportWorker(repo, exporter, nil, 3)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Contains(t, *job.ResultURL, "/api/v1/exports/download/")
	assert.Contains(t, repo.statuses, models.ExportStatusProcessing)
}

func TestExportWorkerMarksFailedAfterRetries(t *testing.T) {
	// No timetable exists for the class, so rendering always fails.
	exporter := newExporterForTest(t, &timetableReaderStub{})
	repo := &exportJobRepoStub{jobs: map[string]models.ExportJob{
		"job-1": {
			ID:     "job-1",
			Params: models.ExportJobParams{Batch: "2026", Section: "A", Format: models.ExportFormatCSV},
			Status: models.ExportStatusQueued,
		},
	}}
	worker := NewExportWorker(repo, exporter, nil, 1)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err, "terminal failure is absorbed, not retried")
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}

func TestResolveDownloadRoundTrip(t *testing.T) {
	timetables := &timetableReaderStub{timetable: &models.Timetable{
		ID: "tt1", Batch: "2026", Section: "A",
		Grid: []models.Slot{{Day: 1, Period: 1, CourseID: "c1", TeacherID: "t1", RoomID: "r1"}},
	}}
	exporter := newExporterForTest(t, timetables)
	repo := &exportJobRepoStub{jobs: map[string]models.ExportJob{
		"job-1": {
			ID:     "job-1",
			Params: models.ExportJobParams{Batch: "2026", Section: "A", Format: models.ExportFormatCSV},
			Status: models.ExportStatusQueued,
		},
	}}
	worker := NewExportWorker(repo, exporter, nil, 3)
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	svc := NewExportJobsService(repo, &enqueuerStub{}, exporter, validator.New(), nil)

	finished := repo.jobs["job-1"]
	require.NotNil(t, finished.ResultURL)
	token := (*finished.ResultURL)[len("/api/v1/exports/download/"):]

	file, job, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	assert.Equal(t, "job-1", job.ID)

	_, _, err = svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

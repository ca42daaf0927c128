package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ExportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ExportStatus, progress int) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CreateExportJobRequest describes a requested timetable export.
type CreateExportJobRequest struct {
	Batch   string `json:"batch" validate:"required,max=20"`
	Section string `json:"section" validate:"required,max=10"`
	Format  string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobsService owns the export job lifecycle: creation, queuing,
// status reads and signed-URL download resolution.
type ExportJobsService struct {
	repo      exportJobRepository
	queue     jobEnqueuer
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportJobsService constructs an ExportJobsService.
func NewExportJobsService(repo exportJobRepository, queue jobEnqueuer, exporter *ExportService, validate *validator.Validate, logger *zap.Logger) *ExportJobsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportJobsService{repo: repo, queue: queue, exporter: exporter, validator: validate, logger: logger}
}

// CreateJob persists a queued job and hands it to the worker pool. A job
// that cannot be enqueued is immediately marked failed so it never sits
// in QUEUED forever.
func (s *ExportJobsService) CreateJob(ctx context.Context, req CreateExportJobRequest, claims *models.JWTClaims) (*models.ExportJob, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	job := &models.ExportJob{
		Params: models.ExportJobParams{
			Batch:   strings.TrimSpace(req.Batch),
			Section: strings.ToUpper(strings.TrimSpace(req.Section)),
			Format:  models.ExportFormat(req.Format),
		},
		Status:    models.ExportStatusQueued,
		CreatedBy: claims.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "timetable_export"}); err != nil {
		now := time.Now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue export job", now); markErr != nil {
			s.logger.Error("failed to mark unqueued job", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// GetStatus returns one job. Non-admins only see their own jobs.
func (s *ExportJobsService) GetStatus(ctx context.Context, jobID string, claims *models.JWTClaims) (*models.ExportJob, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if claims.Role != models.RoleAdmin && job.CreatedBy != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export job belongs to another user")
	}
	return job, nil
}

// ListMine returns the caller's most recent jobs.
func (s *ExportJobsService) ListMine(ctx context.Context, claims *models.JWTClaims, limit int) ([]models.ExportJob, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	jobsList, err := s.repo.ListByUser(ctx, claims.UserID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	return jobsList, nil
}

// ResolveDownload validates a signed token and opens the underlying file.
func (s *ExportJobsService) ResolveDownload(ctx context.Context, token string) (*os.File, *models.ExportJob, error) {
	jobID, relPath, _, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportStatusFinished || job.ResultURL == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export job is not finished")
	}
	if !strings.HasSuffix(*job.ResultURL, token) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download token does not match this job")
	}

	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file no longer available")
	}
	return file, job, nil
}

// StartCleanup launches a periodic sweep removing expired export files.
// It returns immediately; the sweep stops when ctx is cancelled.
func (s *ExportJobsService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.exporter.Cleanup(0)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired export files removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// ExportWorker consumes queued export jobs and drives them to a terminal state.
type ExportWorker struct {
	repo       exportJobRepository
	exporter   *ExportService
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker handler for the export queue.
func NewExportWorker(repo exportJobRepository, exporter *ExportService, logger *zap.Logger, maxRetries int) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{repo: repo, exporter: exporter, logger: logger, maxRetries: maxRetries}
}

// Handle processes one queued job. Transient failures are retried by the
// queue until maxRetries, then the job is marked FAILED.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.FindByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Warn("export job vanished before processing", zap.String("job_id", job.ID))
			return nil
		}
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if record.Status == models.ExportStatusFinished || record.Status == models.ExportStatusFailed {
		return nil
	}

	if err := w.repo.UpdateStatus(ctx, record.ID, models.ExportStatusProcessing, 10); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		if job.Attempt+1 >= w.maxRetries {
			now := time.Now().UTC()
			if markErr := w.repo.MarkFailed(ctx, record.ID, err.Error(), now); markErr != nil {
				w.logger.Error("failed to mark export job failed", zap.String("job_id", record.ID), zap.Error(markErr))
			}
			w.logger.Error("export job failed permanently", zap.String("job_id", record.ID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("render export %s: %w", record.ID, err)
	}

	if err := w.repo.MarkFinished(ctx, record.ID, result.URL, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	w.logger.Info("export job finished",
		zap.String("job_id", record.ID),
		zap.String("format", string(result.Format)),
		zap.String("path", result.RelativePath),
	)
	return nil
}

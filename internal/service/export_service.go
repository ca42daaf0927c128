package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type gridRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderGrid(grid export.Grid, title string) ([]byte, error)
}

type exportCourseReader interface {
	ListByClass(ctx context.Context, batch, section string) ([]models.Course, error)
}

type exportTeacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type exportRoomReader interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

var dayNames = map[int]string{
	1: "Monday", 2: "Tuesday", 3: "Wednesday", 4: "Thursday",
	5: "Friday", 6: "Saturday", 7: "Sunday",
}

// ExportService renders timetable grids to downloadable files.
type ExportService struct {
	timetables timetableReader
	courses    exportCourseReader
	teachers   exportTeacherReader
	rooms      exportRoomReader
	storage    fileStorage
	csv        csvRenderer
	pdf        gridRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	timetables timetableReader,
	courses exportCourseReader,
	teachers exportTeacherReader,
	rooms exportRoomReader,
	store fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportConfig,
	logger *zap.Logger,
	csv csvRenderer,
	pdf gridRenderer,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		timetables: timetables,
		courses:    courses,
		teachers:   teachers,
		rooms:      rooms,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate renders the class timetable in the requested format and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}

	timetable, err := s.timetables.FindByClass(ctx, job.Params.Batch, job.Params.Section)
	if err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	names, err := s.loadNames(ctx, job.Params.Batch, job.Params.Section)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Timetable %s %s", job.Params.Batch, job.Params.Section)

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(buildSlotDataset(timetable.Grid, names))
	case models.ExportFormatPDF:
		payload, err = s.pdf.RenderGrid(buildWeeklyGrid(timetable.Grid, names), title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	signedURL := fmt.Sprintf("%s/exports/download/%s", prefix, token)

	s.logger.Info("export rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Params.Format)),
		zap.String("file", relPath))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

type slotNames struct {
	courses  map[string]string
	teachers map[string]string
	rooms    map[string]string
}

func (n slotNames) course(id string) string  { return nameOr(n.courses, id) }
func (n slotNames) teacher(id string) string { return nameOr(n.teachers, id) }
func (n slotNames) room(id string) string    { return nameOr(n.rooms, id) }

func nameOr(m map[string]string, id string) string {
	if name, ok := m[id]; ok {
		return name
	}
	return id
}

func (s *ExportService) loadNames(ctx context.Context, batch, section string) (slotNames, error) {
	names := slotNames{
		courses:  make(map[string]string),
		teachers: make(map[string]string),
		rooms:    make(map[string]string),
	}
	courses, err := s.courses.ListByClass(ctx, batch, section)
	if err != nil {
		return names, fmt.Errorf("load courses: %w", err)
	}
	for _, c := range courses {
		names.courses[c.ID] = c.Code
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return names, fmt.Errorf("load teachers: %w", err)
	}
	for _, t := range teachers {
		names.teachers[t.ID] = t.FullName
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return names, fmt.Errorf("load rooms: %w", err)
	}
	for _, r := range rooms {
		names.rooms[r.ID] = r.Name
	}
	return names, nil
}

func buildSlotDataset(grid []models.Slot, names slotNames) export.Dataset {
	rows := make([]map[string]string, 0, len(grid))
	for _, slot := range grid {
		rows = append(rows, map[string]string{
			"Day":     dayNames[slot.Day],
			"Period":  fmt.Sprintf("%d", slot.Period),
			"Course":  names.course(slot.CourseID),
			"Teacher": names.teacher(slot.TeacherID),
			"Room":    names.room(slot.RoomID),
		})
	}
	return export.Dataset{
		Headers: []string{"Day", "Period", "Course", "Teacher", "Room"},
		Rows:    rows,
	}
}

func buildWeeklyGrid(grid []models.Slot, names slotNames) export.Grid {
	days := make([]int, 0)
	seen := make(map[int]bool)
	periods := 0
	for _, slot := range grid {
		if !seen[slot.Day] {
			seen[slot.Day] = true
			days = append(days, slot.Day)
		}
		if slot.Period > periods {
			periods = slot.Period
		}
	}
	sort.Ints(days)

	out := export.Grid{Periods: periods}
	for _, day := range days {
		out.DayLabels = append(out.DayLabels, dayNames[day])
		row := make([]string, periods)
		for _, slot := range grid {
			if slot.Day != day {
				continue
			}
			row[slot.Period-1] = fmt.Sprintf("%s\n%s", names.course(slot.CourseID), names.room(slot.RoomID))
		}
		out.Cells = append(out.Cells, row)
	}
	return out
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	classPart := sanitizeFilename(job.Params.Batch + "_" + job.Params.Section)
	return fmt.Sprintf("timetable_%s_%s.%s", classPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/models"
	"github.com/noah-isme/lms-admin-console/pkg/export"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
	"github.com/noah-isme/lms-admin-console/pkg/jobs"
	"github.com/noah-isme/lms-admin-console/pkg/storage"
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

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes selection export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Workers         int
	Retries         int
}

const (
	exportFormatCSV = "csv"
	exportFormatPDF = "pdf"

	exportStatusQueued = "queued"
	exportStatusReady  = "ready"
	exportStatusFailed = "failed"
)

type exportPayload struct {
	Kind    models.Kind
	Format  string
	Records []models.Record
}

// ExportService renders selected records to CSV or PDF in the background.
// The export bulk action never touches the platform: the console already
// holds the records, so rendering happens locally and the file is served
// back through a signed, expiring download URL.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	queue   *jobs.Queue
	logger  *zap.Logger
	cfg     ExportConfig

	mu      sync.Mutex
	tickets map[string]*dto.ExportTicket
}

// NewExportService constructs an ExportService with its worker queue.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	s := &ExportService{
		storage: store,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		tickets: make(map[string]*dto.ExportTicket),
	}
	s.queue = jobs.NewQueue("selection-exports", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and the storage cleanup loop. It returns
// once workers are running; both loops stop when ctx is cancelled.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop drains the worker pool.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// EnqueueSelection schedules a render of the given records and returns a
// ticket the caller can poll. Format defaults to CSV.
func (s *ExportService) EnqueueSelection(ctx context.Context, kind models.Kind, records []models.Record, format string, actor *models.JWTClaims) (*dto.ExportTicket, error) {
	switch format {
	case "":
		format = exportFormatCSV
	case exportFormatCSV, exportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to export")
	}

	ticket := &dto.ExportTicket{
		JobID:   uuid.NewString(),
		Format:  format,
		Records: len(records),
		Status:  exportStatusQueued,
	}
	s.mu.Lock()
	s.tickets[ticket.JobID] = ticket
	s.mu.Unlock()

	err := s.queue.Enqueue(jobs.Job{
		ID:      ticket.JobID,
		Type:    "selection_export",
		Payload: exportPayload{Kind: kind, Format: format, Records: records},
	})
	if err != nil {
		s.mu.Lock()
		delete(s.tickets, ticket.JobID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return snapshotTicket(ticket), nil
}

// Ticket returns the current state of a queued export.
func (s *ExportService) Ticket(jobID string) (*dto.ExportTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return snapshotTicket(ticket), nil
}

// ParseToken validates a download token and returns the stored file path.
func (s *ExportService) ParseToken(token string) (relPath string, err error) {
	_, relPath, _, err = s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	return relPath, nil
}

// Open returns a handle to a rendered export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	dataset, title := buildSelectionDataset(payload.Kind, payload.Records)

	var raw []byte
	var err error
	switch payload.Format {
	case exportFormatPDF:
		raw, err = s.pdf.Render(dataset, title)
	default:
		raw, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.fail(job.ID)
		return err
	}

	filename := fmt.Sprintf("%s_selection_%s.%s", payload.Kind, time.Now().UTC().Format("20060102_150405"), payload.Format)
	relPath, err := s.storage.Save(filename, raw)
	if err != nil {
		s.fail(job.ID)
		return err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID)
		return err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.mu.Lock()
	if ticket, ok := s.tickets[job.ID]; ok {
		ticket.Status = exportStatusReady
		ticket.Token = token
		ticket.URL = fmt.Sprintf("%s/exports/%s", prefix, token)
		ticket.ExpiresAt = expiresAt
	}
	s.mu.Unlock()

	s.logger.Info("selection export rendered",
		zap.String("job_id", job.ID),
		zap.String("kind", string(payload.Kind)),
		zap.String("format", payload.Format),
		zap.Int("records", len(payload.Records)),
	)
	return nil
}

func (s *ExportService) fail(jobID string) {
	s.mu.Lock()
	if ticket, ok := s.tickets[jobID]; ok {
		ticket.Status = exportStatusFailed
	}
	s.mu.Unlock()
}

func (s *ExportService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
			}
			s.pruneTickets()
		}
	}
}

func (s *ExportService) pruneTickets() {
	now := time.Now()
	s.mu.Lock()
	for id, ticket := range s.tickets {
		if ticket.Status == exportStatusReady && now.After(ticket.ExpiresAt) {
			delete(s.tickets, id)
		}
	}
	s.mu.Unlock()
}

func snapshotTicket(t *dto.ExportTicket) *dto.ExportTicket {
	clone := *t
	return &clone
}

func buildSelectionDataset(kind models.Kind, records []models.Record) (export.Dataset, string) {
	var headers []string
	rows := make([]map[string]string, 0, len(records))

	switch kind {
	case models.KindCourse:
		headers = []string{"ID", "Title", "Instructor", "Category", "Status", "Rating", "Enrolled", "Revenue", "Created At"}
		for _, r := range records {
			rows = append(rows, map[string]string{
				"ID":         r.ID,
				"Title":      r.Name,
				"Instructor": r.InstructorName,
				"Category":   r.Category,
				"Status":     string(r.Status),
				"Rating":     fmt.Sprintf("%.2f", r.Rating),
				"Enrolled":   fmt.Sprintf("%d", r.EnrolledCount),
				"Revenue":    fmt.Sprintf("%.2f", r.Revenue),
				"Created At": formatExportTime(r.CreatedAt),
			})
		}
	case models.KindInstructor:
		headers = []string{"ID", "Name", "Email", "Status", "Rating", "Students", "Revenue", "Created At"}
		for _, r := range records {
			rows = append(rows, map[string]string{
				"ID":         r.ID,
				"Name":       r.Name,
				"Email":      r.Email,
				"Status":     string(r.Status),
				"Rating":     fmt.Sprintf("%.2f", r.Rating),
				"Students":   fmt.Sprintf("%d", r.EnrolledCount),
				"Revenue":    fmt.Sprintf("%.2f", r.Revenue),
				"Created At": formatExportTime(r.CreatedAt),
			})
		}
	default:
		headers = []string{"ID", "Name", "Email", "Status", "Enrolled Courses", "Joined", "Last Active"}
		for _, r := range records {
			rows = append(rows, map[string]string{
				"ID":               r.ID,
				"Name":             r.Name,
				"Email":            r.Email,
				"Status":           string(r.Status),
				"Enrolled Courses": fmt.Sprintf("%d", r.EnrolledCount),
				"Joined":           formatExportTime(r.CreatedAt),
				"Last Active":      formatExportTime(r.LastActiveAt),
			})
		}
	}

	title := fmt.Sprintf("%s selection export", capitalize(string(kind)))
	return export.Dataset{Headers: headers, Rows: rows}, title
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatExportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/gateway"
	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

type importJobWriter interface {
	Create(ctx context.Context, job *models.ImportJob) error
}

// ImportService turns loosely formatted CSV text into a validated batch-create
// request. Parsing is tolerant: malformed rows are discarded silently instead
// of aborting the batch, and only emptiness of name and email is checked
// locally. Everything stricter is the platform's job.
type ImportService struct {
	gateway gateway.Service
	jobs    importJobWriter
	stats   statsInvalidator
	audit   auditRecorder
	logger  *zap.Logger
}

// NewImportService constructs the import pipeline.
func NewImportService(gw gateway.Service, jobs importJobWriter, stats statsInvalidator, audit auditRecorder, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{gateway: gw, jobs: jobs, stats: stats, audit: audit, logger: logger}
}

// Parse decodes the text payload into rows. The first line is the header,
// lower-cased and trimmed into field names; every following line is mapped to
// a row by header position. Rows whose field count differs from the header's,
// or whose name or email is empty after trimming, are dropped. The second
// return value is the number of discarded rows.
func (s *ImportService) Parse(text string) ([]models.ImportRow, int) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, 0
	}

	header := strings.Split(lines[0], ",")
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	rows := make([]models.ImportRow, 0, len(lines)-1)
	discarded := 0
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			discarded++
			continue
		}
		var row models.ImportRow
		for i, name := range header {
			value := strings.TrimSpace(fields[i])
			switch name {
			case "name":
				row.Name = value
			case "email":
				row.Email = value
			case "password":
				row.Password = value
			case "phone":
				row.Phone = value
			}
		}
		if row.Name == "" || row.Email == "" {
			discarded++
			continue
		}
		rows = append(rows, row)
	}
	return rows, discarded
}

// Submit sends the parsed rows as one batch-create call and records the job
// in the local import history. With zero valid rows it fails fast and never
// reaches the network. The platform's response message is surfaced verbatim.
func (s *ImportService) Submit(ctx context.Context, kind models.Kind, rows []models.ImportRow, discarded int, actor *models.JWTClaims) (*models.ImportSummary, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid data to import")
	}

	message, created, err := s.gateway.BatchCreate(ctx, kind, rows)
	if err != nil {
		return nil, err
	}

	summary := &models.ImportSummary{
		Message:       message,
		Created:       created,
		ValidRows:     len(rows),
		DiscardedRows: discarded,
	}

	if s.jobs != nil {
		job := &models.ImportJob{
			Kind:      kind,
			TotalRows: len(rows) + discarded,
			ValidRows: len(rows),
			Created:   created,
			Message:   message,
		}
		if actor != nil {
			job.OperatorID = actor.UserID
		}
		if err := s.jobs.Create(ctx, job); err != nil {
			s.logger.Warn("failed to record import job", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, kind); err != nil {
			s.logger.Warn("stats invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	s.emitAudit(ctx, kind, summary, actor)
	return summary, nil
}

func (s *ImportService) emitAudit(ctx context.Context, kind models.Kind, summary *models.ImportSummary, actor *models.JWTClaims) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(summary)
	log := &models.AuditLog{
		Action:    models.AuditActionImport,
		Kind:      kind,
		Detail:    detail,
		IPAddress: "console-gateway",
		UserAgent: "import-service",
	}
	if actor != nil {
		log.OperatorID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// splitLines splits on newlines, tolerates CRLF, and skips blank lines.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

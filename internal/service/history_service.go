package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

type auditLister interface {
	ListByRecord(ctx context.Context, kind models.Kind, recordID string, limit int) ([]models.AuditLog, error)
}

type importJobLister interface {
	List(ctx context.Context, filter models.ImportJobFilter) ([]models.ImportJob, int, error)
}

// HistoryService reads the locally persisted trails: per-record audit logs and
// the import submission history. Both are unavailable when the gateway runs
// without a database.
type HistoryService struct {
	audit   auditLister
	imports importJobLister
	logger  *zap.Logger
}

// NewHistoryService constructs a HistoryService. Either repository may be nil.
func NewHistoryService(audit auditLister, imports importJobLister, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{audit: audit, imports: imports, logger: logger}
}

// RecordTrail returns the audit entries for one record, newest first.
func (s *HistoryService) RecordTrail(ctx context.Context, kind models.Kind, recordID string, limit int) ([]models.AuditLog, error) {
	if s.audit == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "audit trail is not enabled")
	}
	if recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	logs, err := s.audit.ListByRecord(ctx, kind, recordID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return logs, nil
}

// ImportHistory returns past import submissions matching the filter.
func (s *HistoryService) ImportHistory(ctx context.Context, filter models.ImportJobFilter) ([]models.ImportJob, int, error) {
	if s.imports == nil {
		return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "import history is not enabled")
	}
	jobs, total, err := s.imports.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load import history")
	}
	return jobs, total, nil
}

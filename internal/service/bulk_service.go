package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/gateway"
	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

type consoleReloader interface {
	Reload(ctx context.Context, console *Console) error
}

type selectionExporter interface {
	EnqueueSelection(ctx context.Context, kind models.Kind, records []models.Record, format string, actor *models.JWTClaims) (*dto.ExportTicket, error)
}

// BulkService applies one action to the whole selection through a single
// batched platform call. The batch is all-or-nothing: one success or failure
// signal, no per-record bookkeeping, and because nothing is applied
// optimistically there is nothing to roll back on failure. While a batch is
// in flight, individual transitions on records inside it are rejected.
type BulkService struct {
	gateway   gateway.Service
	consoles  consoleReloader
	stats     statsInvalidator
	audit     auditRecorder
	exporter  selectionExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBulkService constructs the bulk orchestrator.
func NewBulkService(gw gateway.Service, consoles consoleReloader, stats statsInvalidator, audit auditRecorder, exporter selectionExporter, validate *validator.Validate, logger *zap.Logger) *BulkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkService{
		gateway:   gw,
		consoles:  consoles,
		stats:     stats,
		audit:     audit,
		exporter:  exporter,
		validator: validate,
		logger:    logger,
	}
}

// Apply validates, gates, and executes one bulk action for the console.
// Validation runs before the confirmation gate and before any network call.
func (s *BulkService) Apply(ctx context.Context, console *Console, req dto.BulkRequest, actor *models.JWTClaims) (*dto.BulkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "bulk action is required")
	}

	console.mu.Lock()

	if len(console.selection) == 0 {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "selection is empty")
	}
	if !console.desc.HasAction(req.Action) {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "action is not part of this kind's vocabulary")
	}
	if !req.Confirmed {
		size := len(console.selection)
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("confirmation required to %s %d records", req.Action, size))
	}
	if console.bulkSelection != nil {
		console.mu.Unlock()
		return nil, appErrors.ErrBulkInFlight
	}
	for id := range console.selection {
		if _, busy := console.inflight[id]; busy {
			console.mu.Unlock()
			return nil, appErrors.Clone(appErrors.ErrTransitionInFlight, "a selected record has a transition in flight")
		}
	}

	ids := console.selectionIDs()

	if req.Action == models.ActionExport {
		// Export never reaches the platform: it renders the selected
		// records locally and keeps the selection intact.
		selected := make([]models.Record, 0, len(ids))
		for _, id := range ids {
			if r := console.findRecord(id); r != nil {
				selected = append(selected, *r)
			}
		}
		kind := console.kind
		console.mu.Unlock()

		if s.exporter == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "export is not available")
		}
		ticket, err := s.exporter.EnqueueSelection(ctx, kind, selected, req.Format, actor)
		if err != nil {
			return nil, err
		}
		s.emitAudit(ctx, kind, models.AuditActionExport, ids, actor)
		return &dto.BulkResult{Message: "export queued", Affected: len(selected), Export: ticket}, nil
	}

	covered := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		covered[id] = struct{}{}
	}
	console.bulkSelection = covered
	generation := console.generation
	kind := console.kind
	console.mu.Unlock()

	message, remoteErr := s.gateway.BulkAction(ctx, kind, ids, req.Action)

	console.mu.Lock()
	console.bulkSelection = nil
	if console.generation != generation {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrStaleResponse, "")
	}
	if remoteErr != nil {
		// Nothing was applied optimistically: selection and records stay
		// exactly as they were before the call.
		console.mu.Unlock()
		return nil, remoteErr
	}
	console.selection = make(map[string]struct{})
	console.pendingAction = ""
	console.mu.Unlock()

	if err := s.consoles.Reload(ctx, console); err != nil && !appErrors.IsStale(err) {
		s.logger.Warn("post-bulk reload failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, kind); err != nil {
			s.logger.Warn("stats invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	s.emitAudit(ctx, kind, models.AuditActionBulkApply, ids, actor)

	if message == "" {
		message = fmt.Sprintf("%s applied to %d records", req.Action, len(ids))
	}
	return &dto.BulkResult{Message: message, Affected: len(ids)}, nil
}

func (s *BulkService) emitAudit(ctx context.Context, kind models.Kind, action string, ids []string, actor *models.JWTClaims) {
	if s.audit == nil {
		return
	}
	detail, _ := json.Marshal(map[string]interface{}{"ids": ids})
	log := &models.AuditLog{
		Action:    action,
		Kind:      kind,
		Detail:    detail,
		IPAddress: "console-gateway",
		UserAgent: "bulk-service",
	}
	if actor != nil {
		log.OperatorID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

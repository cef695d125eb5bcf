package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/gateway"
	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type statsInvalidator interface {
	Invalidate(ctx context.Context, kind models.Kind) error
}

// TransitionService is the guarded status state machine. Transitions apply
// optimistically, leave a time-boxed undo affordance behind on success, and
// roll back immediately on remote failure. Only one transition may be in
// flight per record; a second request is rejected, never raced.
type TransitionService struct {
	gateway    gateway.Service
	audit      auditRecorder
	stats      statsInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
	undoWindow time.Duration
	now        func() time.Time
	newToken   func() string
}

// NewTransitionService constructs the transition engine.
func NewTransitionService(gw gateway.Service, audit auditRecorder, stats statsInvalidator, undoWindow time.Duration, validate *validator.Validate, logger *zap.Logger) *TransitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if undoWindow <= 0 {
		undoWindow = 5 * time.Second
	}
	return &TransitionService{
		gateway:    gw,
		audit:      audit,
		stats:      stats,
		validator:  validate,
		logger:     logger,
		undoWindow: undoWindow,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
}

// Transition moves a record to the target status. The confirmation gate is a
// mandatory precondition: without it nothing changes locally and nothing is
// sent to the platform.
func (s *TransitionService) Transition(ctx context.Context, console *Console, recordID string, req dto.TransitionRequest, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "target status is required")
	}
	if !req.Confirmed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "transition requires confirmation")
	}
	return s.apply(ctx, console, recordID, req.Status, req.Label, false, actor)
}

// Undo reverses the last confirmed transition while its window is open. It
// skips the confirmation gate; invoking an expired or superseded undo is a
// harmless no-op so stale toast callbacks cannot corrupt state.
func (s *TransitionService) Undo(ctx context.Context, console *Console, recordID, token string, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	console.mu.Lock()
	pending := console.pendingUndo
	if pending == nil || pending.RecordID != recordID || (token != "" && pending.Token != token) {
		console.mu.Unlock()
		return &dto.TransitionResult{NoOp: true, UndoExpired: true}, nil
	}
	if pending.Expired(s.now()) {
		console.pendingUndo = nil
		console.mu.Unlock()
		return &dto.TransitionResult{NoOp: true, UndoExpired: true}, nil
	}
	previous := pending.PreviousStatus
	console.mu.Unlock()

	return s.apply(ctx, console, recordID, previous, "undo", true, actor)
}

func (s *TransitionService) apply(ctx context.Context, console *Console, recordID string, target models.Status, label string, isUndo bool, actor *models.JWTClaims) (*dto.TransitionResult, error) {
	console.mu.Lock()

	record := console.findRecord(recordID)
	if record == nil {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	if !console.desc.HasStatus(target) {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "status is not part of this kind's enum")
	}
	if record.Status == target {
		// Already there: no optimistic write, no remote call, and crucially
		// no new PendingUndo.
		result := &dto.TransitionResult{Record: cloneRecord(*record), NoOp: true}
		console.mu.Unlock()
		return result, nil
	}
	if !isUndo && !console.desc.AllowsTransition(record.Status, target) {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "transition not allowed from current status")
	}
	if _, busy := console.inflight[recordID]; busy {
		console.mu.Unlock()
		return nil, appErrors.ErrTransitionInFlight
	}
	if console.bulkSelection != nil {
		if _, covered := console.bulkSelection[recordID]; covered {
			console.mu.Unlock()
			return nil, appErrors.ErrBulkInFlight
		}
	}

	previous := record.Status
	record.Status = target
	undo := &models.PendingUndo{
		RecordID:       recordID,
		PreviousStatus: previous,
		Token:          s.newToken(),
		ExpiresAt:      s.now().Add(s.undoWindow),
	}
	// Replaces any prior PendingUndo, including the one that produced an
	// undo call: the affordance always points at the latest transition.
	console.pendingUndo = undo
	console.inflight[recordID] = struct{}{}
	generation := console.generation
	kind := console.kind
	console.mu.Unlock()

	remoteErr := s.gateway.UpdateStatus(ctx, kind, recordID, target)

	console.mu.Lock()
	delete(console.inflight, recordID)
	if console.generation != generation {
		console.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrStaleResponse, "")
	}
	if remoteErr != nil {
		if current := console.findRecord(recordID); current != nil && current.Status == target {
			current.Status = previous
		}
		if console.pendingUndo == undo {
			console.pendingUndo = nil
		}
		console.mu.Unlock()
		return nil, remoteErr
	}
	result := &dto.TransitionResult{
		Record: cloneRecord(*console.findRecord(recordID)),
		Undo: &dto.UndoInfo{
			Token:          undo.Token,
			PreviousStatus: undo.PreviousStatus,
			ExpiresAt:      undo.ExpiresAt,
		},
	}
	console.mu.Unlock()

	s.emitAudit(ctx, console, recordID, previous, target, label, isUndo, actor)
	if s.stats != nil {
		if err := s.stats.Invalidate(ctx, kind); err != nil {
			s.logger.Warn("stats invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return result, nil
}

func (s *TransitionService) emitAudit(ctx context.Context, console *Console, recordID string, from, to models.Status, label string, isUndo bool, actor *models.JWTClaims) {
	if s.audit == nil {
		return
	}
	action := models.AuditActionTransition
	if isUndo {
		action = models.AuditActionUndo
	}
	detail, _ := json.Marshal(map[string]string{"from": string(from), "to": string(to), "label": label})
	log := &models.AuditLog{
		Action:    action,
		Kind:      console.kind,
		RecordID:  &recordID,
		Detail:    detail,
		IPAddress: "console-gateway",
		UserAgent: "transition-service",
	}
	if actor != nil {
		log.OperatorID = &actor.UserID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func cloneRecord(r models.Record) *models.Record {
	return &r
}

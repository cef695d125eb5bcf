package dto

import (
	"time"

	"github.com/noah-isme/lms-admin-console/internal/models"
)

// ConsoleView is the payload returned after mount, view edits, and refresh.
type ConsoleView struct {
	Kind          models.Kind           `json:"kind"`
	Params        models.ViewParameters `json:"params"`
	Slice         []models.Record       `json:"slice"`
	TotalMatching int                   `json:"total_matching"`
	TotalPages    int                   `json:"total_pages"`
	SelectionSize int                   `json:"selection_size"`
}

// TransitionRequest asks for one status change on one record. Confirmed
// carries the operator's answer to the yes/no gate; a denied gate must reach
// the engine so it can refuse without touching local state or the network.
type TransitionRequest struct {
	Status    models.Status `json:"status" validate:"required"`
	Label     string        `json:"label"`
	Confirmed bool          `json:"confirmed"`
}

// UndoInfo describes the live undo affordance of a confirmed transition.
type UndoInfo struct {
	Token          string        `json:"token"`
	PreviousStatus models.Status `json:"previous_status"`
	ExpiresAt      time.Time     `json:"expires_at"`
}

// TransitionResult reports the outcome of a transition or undo.
type TransitionResult struct {
	Record      *models.Record `json:"record,omitempty"`
	NoOp        bool           `json:"no_op,omitempty"`
	UndoExpired bool           `json:"undo_expired,omitempty"`
	Undo        *UndoInfo      `json:"undo,omitempty"`
}

// UndoRequest invokes the undo affordance issued by a prior transition.
type UndoRequest struct {
	Token string `json:"token" validate:"required"`
}

// SelectionRequest adds and removes record ids from the console selection.
type SelectionRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// SelectionResult reports the selection size and any ids that could not be
// added because no loaded record backs them.
type SelectionResult struct {
	Size    int      `json:"size"`
	Unknown []string `json:"unknown,omitempty"`
}

// BulkRequest applies one action to the current selection.
type BulkRequest struct {
	Action    models.ActionKind `json:"action" validate:"required"`
	Confirmed bool              `json:"confirmed"`
	Format    string            `json:"format,omitempty"`
}

// BulkResult is the single success/failure signal of a batched action.
type BulkResult struct {
	Message  string        `json:"message"`
	Affected int           `json:"affected"`
	Export   *ExportTicket `json:"export,omitempty"`
}

// ImportRequest carries the raw CSV payload.
type ImportRequest struct {
	Text string `json:"text" validate:"required"`
}

// StatsResponse combines authoritative platform aggregates with counts
// derived from the locally visible page.
type StatsResponse struct {
	Platform map[string]int        `json:"platform"`
	Page     map[models.Status]int `json:"page"`
	CacheHit bool                  `json:"-"`
}

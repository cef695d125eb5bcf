package models

import "time"

// AuditAction constants represent operator actions to be logged.
const (
	AuditActionTransition = "STATUS_TRANSITION"
	AuditActionUndo       = "STATUS_UNDO"
	AuditActionBulkApply  = "BULK_APPLY"
	AuditActionImport     = "IMPORT_SUBMIT"
	AuditActionExport     = "EXPORT"
)

// AuditLog represents an audit trail record for one operator action.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	OperatorID *string   `db:"operator_id" json:"operator_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Kind       Kind      `db:"kind" json:"kind"`
	RecordID   *string   `db:"record_id" json:"record_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

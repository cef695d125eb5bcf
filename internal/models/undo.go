package models

import "time"

// PendingUndo is the time-boxed memory of the last confirmed transition of a
// console. At most one exists per console; a newer optimistic transition for
// the same record replaces it, and an expired one is inert.
type PendingUndo struct {
	RecordID       string    `json:"record_id"`
	PreviousStatus Status    `json:"previous_status"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the undo window has closed.
func (u *PendingUndo) Expired(now time.Time) bool {
	return u == nil || !now.Before(u.ExpiresAt)
}

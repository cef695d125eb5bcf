package models

import "time"

// Kind identifies which console an operation targets.
type Kind string

const (
	KindStudent    Kind = "student"
	KindInstructor Kind = "instructor"
	KindCourse     Kind = "course"
)

// ParseKind validates a kind received from the route path.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindStudent, KindInstructor, KindCourse:
		return Kind(raw), true
	}
	return "", false
}

// Status is a lifecycle state drawn from the closed enum of a record's kind.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusBanned    Status = "banned"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// StatusFilterAll is the sentinel meaning "no status filtering".
const StatusFilterAll = "all"

// Record is the client-side copy of a platform-owned entity. The platform
// service is the source of truth; the console only holds a possibly stale
// snapshot and never fabricates identities or status values.
type Record struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"kind"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Status         Status    `json:"status"`
	Category       string    `json:"category,omitempty"`
	InstructorName string    `json:"instructor_name,omitempty"`
	Description    string    `json:"description,omitempty"`
	Rating         float64   `json:"rating,omitempty"`
	EnrolledCount  int       `json:"enrolled_count,omitempty"`
	Revenue        float64   `json:"revenue,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActiveAt   time.Time `json:"last_active_at,omitempty"`
}

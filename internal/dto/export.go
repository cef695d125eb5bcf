package dto

import "time"

// ExportTicket references a queued selection export.
type ExportTicket struct {
	JobID     string    `json:"job_id"`
	Format    string    `json:"format"`
	Records   int       `json:"records"`
	Token     string    `json:"token,omitempty"`
	URL       string    `json:"url,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Status    string    `json:"status"`
}

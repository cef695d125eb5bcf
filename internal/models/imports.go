package models

import "time"

// ImportRow is one loosely-formatted line promoted from the CSV payload.
// Rows live only between parse and submit; they are never persisted as-is.
type ImportRow struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// ImportSummary reports the outcome of one batched create request. Message is
// the platform response surfaced verbatim.
type ImportSummary struct {
	Message       string `json:"message"`
	Created       int    `json:"created"`
	ValidRows     int    `json:"valid_rows"`
	DiscardedRows int    `json:"discarded_rows"`
}

// ImportJob is the locally persisted history entry for one import submit.
type ImportJob struct {
	ID         string    `db:"id" json:"id"`
	Kind       Kind      `db:"kind" json:"kind"`
	OperatorID string    `db:"operator_id" json:"operator_id"`
	TotalRows  int       `db:"total_rows" json:"total_rows"`
	ValidRows  int       `db:"valid_rows" json:"valid_rows"`
	Created    int       `db:"created" json:"created"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ImportJobFilter captures filtering criteria for listing import history.
type ImportJobFilter struct {
	Kind       Kind
	OperatorID string
	Page       int
	PageSize   int
}

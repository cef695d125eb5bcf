package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-admin-console/internal/models"
)

// ImportJobRepository persists the history of batched import submissions.
type ImportJobRepository struct {
	db *sqlx.DB
}

// NewImportJobRepository constructs an ImportJobRepository.
func NewImportJobRepository(db *sqlx.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new import job entry. Writes are dropped when the
// repository runs without a database.
func (r *ImportJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	if r == nil || r.db == nil {
		return nil
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO import_jobs (id, kind, operator_id, total_rows, valid_rows, created, message, created_at)
        VALUES (:id, :kind, :operator_id, :total_rows, :valid_rows, :created, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

// List returns import history matching the provided filters, newest first.
func (r *ImportJobRepository) List(ctx context.Context, filter models.ImportJobFilter) ([]models.ImportJob, int, error) {
	conditions := "WHERE 1=1"
	args := []interface{}{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.OperatorID != "" {
		args = append(args, filter.OperatorID)
		conditions += fmt.Sprintf(" AND operator_id = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, kind, operator_id, total_rows, valid_rows, created, message, created_at
        FROM import_jobs %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, conditions, size, offset)
	var jobs []models.ImportJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list import jobs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM import_jobs %s", conditions)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count import jobs: %w", err)
	}
	return jobs, total, nil
}

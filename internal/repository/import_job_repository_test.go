package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-console/internal/models"
)

func TestImportJobRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewImportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO import_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ImportJob{
		Kind:       models.KindStudent,
		OperatorID: "admin-1",
		TotalRows:  5,
		ValidRows:  4,
		Created:    4,
		Message:    "4 created, 0 skipped",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryCreateWithoutDatabase(t *testing.T) {
	var repo *ImportJobRepository
	require.NoError(t, repo.Create(context.Background(), &models.ImportJob{Kind: models.KindStudent}))

	repo = NewImportJobRepository(nil)
	require.NoError(t, repo.Create(context.Background(), &models.ImportJob{Kind: models.KindStudent}))
}

func TestImportJobRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewImportJobRepository(db)
	rows := sqlmock.NewRows([]string{"id", "kind", "operator_id", "total_rows", "valid_rows", "created", "message", "created_at"}).
		AddRow("job-1", "student", "admin-1", 5, 4, 4, "4 created", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, kind, operator_id, total_rows, valid_rows, created, message, created_at")).
		WithArgs(models.KindStudent, "admin-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM import_jobs")).
		WithArgs(models.KindStudent, "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	jobs, total, err := repo.List(context.Background(), models.ImportJobFilter{
		Kind:       models.KindStudent,
		OperatorID: "admin-1",
		Page:       1,
		PageSize:   20,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, 7, total)
	require.Equal(t, "job-1", jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryListUnfiltered(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewImportJobRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, kind, operator_id, total_rows, valid_rows, created, message, created_at")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "operator_id", "total_rows", "valid_rows", "created", "message", "created_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM import_jobs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	jobs, total, err := repo.List(context.Background(), models.ImportJobFilter{})
	require.NoError(t, err)
	require.Empty(t, jobs)
	require.Equal(t, 0, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-console/internal/models"
)

func newAuditRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	operator := "admin-1"
	recordID := "s-42"
	log := &models.AuditLog{
		OperatorID: &operator,
		Action:     models.AuditActionTransition,
		Kind:       models.KindStudent,
		RecordID:   &recordID,
		Detail:     []byte(`{"from":"active","to":"banned"}`),
		IPAddress:  "console-gateway",
		UserAgent:  "transition-service",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))

	// Create backfills identity and timestamp.
	require.NotEmpty(t, log.ID)
	require.False(t, log.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateWithoutDatabase(t *testing.T) {
	var repo *AuditRepository
	require.NoError(t, repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionUndo}))

	repo = NewAuditRepository(nil)
	require.NoError(t, repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionUndo}))
}

func TestAuditRepositoryListByRecord(t *testing.T) {
	db, mock, cleanup := newAuditRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	operator := "admin-1"
	recordID := "s-42"
	rows := sqlmock.NewRows([]string{"id", "operator_id", "action", "kind", "record_id", "detail", "ip_address", "user_agent", "created_at"}).
		AddRow("log-2", operator, models.AuditActionUndo, "student", recordID, []byte(`{}`), "console-gateway", "transition-service", time.Now()).
		AddRow("log-1", operator, models.AuditActionTransition, "student", recordID, []byte(`{}`), "console-gateway", "transition-service", time.Now().Add(-time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, operator_id, action, kind, record_id, detail, ip_address, user_agent, created_at")).
		WithArgs(models.KindStudent, recordID).
		WillReturnRows(rows)

	logs, err := repo.ListByRecord(context.Background(), models.KindStudent, recordID, 50)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "log-2", logs[0].ID)
	require.Equal(t, models.AuditActionUndo, logs[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

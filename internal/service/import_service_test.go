package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

type recordingJobWriter struct {
	jobs []*models.ImportJob
	err  error
}

func (r *recordingJobWriter) Create(ctx context.Context, job *models.ImportJob) error {
	r.jobs = append(r.jobs, job)
	return r.err
}

func newImportService(gw *stubGateway, jobs *recordingJobWriter) (*ImportService, *recordingInvalidator, *recordingAudit) {
	stats := &recordingInvalidator{}
	audit := &recordingAudit{}
	return NewImportService(gw, jobs, stats, audit, nil), stats, audit
}

func TestParseDiscardsRowsWithEmptyRequiredFields(t *testing.T) {
	svc, _, _ := newImportService(&stubGateway{}, nil)

	rows, discarded := svc.Parse("name,email,password\nAda,ada@x.com,pw1\n,bad,pw2\nBob,bob@x.com,pw3")
	require.Len(t, rows, 2)
	assert.Equal(t, 1, discarded)
	assert.Equal(t, "Ada", rows[0].Name)
	assert.Equal(t, "ada@x.com", rows[0].Email)
	assert.Equal(t, "Bob", rows[1].Name)
}

func TestParseDiscardsFieldCountMismatch(t *testing.T) {
	svc, _, _ := newImportService(&stubGateway{}, nil)

	rows, discarded := svc.Parse("name,email\nAda,ada@x.com\nBob,bob@x.com,extra-field\nCleo")
	require.Len(t, rows, 1)
	assert.Equal(t, 2, discarded)
	assert.Equal(t, "Ada", rows[0].Name)
}

func TestParseHeaderIsCaseAndSpaceInsensitive(t *testing.T) {
	svc, _, _ := newImportService(&stubGateway{}, nil)

	rows, discarded := svc.Parse(" Name , EMAIL , Phone \r\nAda, ada@x.com , 555-0101\r\n")
	require.Len(t, rows, 1)
	assert.Equal(t, 0, discarded)
	assert.Equal(t, "Ada", rows[0].Name)
	assert.Equal(t, "ada@x.com", rows[0].Email)
	assert.Equal(t, "555-0101", rows[0].Phone)
}

func TestParseSkipsBlankLines(t *testing.T) {
	svc, _, _ := newImportService(&stubGateway{}, nil)

	rows, discarded := svc.Parse("name,email\n\nAda,ada@x.com\n   \nBob,bob@x.com\n")
	assert.Len(t, rows, 2)
	assert.Equal(t, 0, discarded)
}

func TestParseEmptyText(t *testing.T) {
	svc, _, _ := newImportService(&stubGateway{}, nil)

	rows, discarded := svc.Parse("")
	assert.Empty(t, rows)
	assert.Equal(t, 0, discarded)
}

func TestSubmitWithNoValidRowsNeverReachesNetwork(t *testing.T) {
	gw := &stubGateway{}
	svc, stats, _ := newImportService(gw, nil)

	_, err := svc.Submit(context.Background(), models.KindStudent, nil, 3, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, gw.batchCalls)
	assert.Empty(t, stats.kinds)
}

func TestSubmitSurfacesPlatformMessageVerbatim(t *testing.T) {
	gw := &stubGateway{batchMessage: "2 created, 0 skipped", batchCreated: 2}
	jobs := &recordingJobWriter{}
	svc, stats, audit := newImportService(gw, jobs)

	rows := []models.ImportRow{
		{Name: "Ada", Email: "ada@x.com"},
		{Name: "Bob", Email: "bob@x.com"},
	}
	summary, err := svc.Submit(context.Background(), models.KindStudent, rows, 1, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, "2 created, 0 skipped", summary.Message)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 2, summary.ValidRows)
	assert.Equal(t, 1, summary.DiscardedRows)

	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, 3, jobs.jobs[0].TotalRows)
	assert.Equal(t, "admin-1", jobs.jobs[0].OperatorID)

	assert.Equal(t, []models.Kind{models.KindStudent}, stats.kinds)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionImport, audit.logs[0].Action)
}

func TestSubmitPlatformFailure(t *testing.T) {
	gw := &stubGateway{batchErr: errors.New("platform rejected the batch")}
	jobs := &recordingJobWriter{}
	svc, stats, _ := newImportService(gw, jobs)

	_, err := svc.Submit(context.Background(), models.KindStudent, []models.ImportRow{{Name: "Ada", Email: "ada@x.com"}}, 0, nil)
	require.Error(t, err)
	assert.Empty(t, jobs.jobs)
	assert.Empty(t, stats.kinds)
}

func TestSubmitJobWriteFailureIsNonFatal(t *testing.T) {
	gw := &stubGateway{batchMessage: "1 created", batchCreated: 1}
	jobs := &recordingJobWriter{err: errors.New("db offline")}
	svc, _, _ := newImportService(gw, jobs)

	summary, err := svc.Submit(context.Background(), models.KindStudent, []models.ImportRow{{Name: "Ada", Email: "ada@x.com"}}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
}

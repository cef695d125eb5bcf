package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

type stubExporter struct {
	calls       int
	lastKind    models.Kind
	lastRecords []models.Record
	lastFormat  string
	ticket      *dto.ExportTicket
	err         error
}

func (s *stubExporter) EnqueueSelection(ctx context.Context, kind models.Kind, records []models.Record, format string, actor *models.JWTClaims) (*dto.ExportTicket, error) {
	s.calls++
	s.lastKind = kind
	s.lastRecords = records
	s.lastFormat = format
	if s.err != nil {
		return nil, s.err
	}
	return s.ticket, nil
}

type bulkFixture struct {
	gw       *stubGateway
	consoles *ConsoleService
	console  *Console
	svc      *BulkService
	audit    *recordingAudit
	stats    *recordingInvalidator
	exporter *stubExporter
}

func newBulkFixture(t *testing.T, records []models.Record) *bulkFixture {
	t.Helper()
	gw := &stubGateway{records: records}
	consoles := newTestConsoleService(gw)
	console := mountStudentConsole(t, consoles)

	f := &bulkFixture{
		gw:       gw,
		consoles: consoles,
		console:  console,
		audit:    &recordingAudit{},
		stats:    &recordingInvalidator{},
		exporter: &stubExporter{ticket: &dto.ExportTicket{JobID: "job-1", Status: "queued"}},
	}
	f.svc = NewBulkService(gw, consoles, f.stats, f.audit, f.exporter, nil, nil)
	return f
}

func (f *bulkFixture) selectIDs(t *testing.T, ids ...string) {
	t.Helper()
	_, _, err := f.consoles.UpdateSelection("op-1", models.KindStudent, ids, nil)
	require.NoError(t, err)
}

func TestBulkValidationRunsBeforeConfirmation(t *testing.T) {
	f := newBulkFixture(t, makeStudents(3, 0))

	// Missing action is reported first even though nothing is confirmed.
	_, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{}, nil)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "bulk action is required")

	// Empty selection beats the confirmation gate too.
	_, err = f.svc.Apply(context.Background(), f.console, dto.BulkRequest{Action: models.ActionBan}, nil)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "selection is empty")

	// Approve is not in the student vocabulary.
	f.selectIDs(t, "a-0")
	_, err = f.svc.Apply(context.Background(), f.console, dto.BulkRequest{Action: models.ActionApprove}, nil)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "vocabulary")

	assert.Equal(t, 0, f.gw.bulkCalls)
}

func TestBulkConfirmationGate(t *testing.T) {
	f := newBulkFixture(t, makeStudents(3, 0))
	f.selectIDs(t, "a-0", "a-1")

	_, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{Action: models.ActionBan}, nil)
	require.Error(t, err)
	assert.Equal(t, "confirmation required to ban 2 records", appErrors.FromError(err).Message)
	assert.Equal(t, 0, f.gw.bulkCalls)
	assert.Equal(t, 2, f.console.SelectionSize())
}

func TestBulkSuccessClearsSelectionAndReloads(t *testing.T) {
	f := newBulkFixture(t, makeStudents(5, 0))
	f.selectIDs(t, "a-0", "a-2", "a-4")
	listsBefore := f.gw.listCalls

	result, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionBan,
		Confirmed: true,
	}, &models.JWTClaims{UserID: "admin-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.gw.bulkCalls)
	assert.ElementsMatch(t, []string{"a-0", "a-2", "a-4"}, f.gw.lastBulkIDs)
	assert.Equal(t, models.ActionBan, f.gw.lastBulkAction)
	assert.Equal(t, "ban applied to 3 records", result.Message)
	assert.Equal(t, 3, result.Affected)

	assert.Equal(t, 0, f.console.SelectionSize())
	assert.Equal(t, listsBefore+1, f.gw.listCalls)
	assert.Equal(t, []models.Kind{models.KindStudent}, f.stats.kinds)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionBulkApply, f.audit.logs[0].Action)
}

func TestBulkSurfacesPlatformMessage(t *testing.T) {
	f := newBulkFixture(t, makeStudents(2, 0))
	f.gw.bulkMessage = "2 students banned"
	f.selectIDs(t, "a-0", "a-1")

	result, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionBan,
		Confirmed: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2 students banned", result.Message)
}

func TestBulkFailureLeavesStateUntouched(t *testing.T) {
	f := newBulkFixture(t, makeStudents(4, 0))
	f.gw.bulkErr = errors.New("platform down")
	f.selectIDs(t, "a-1", "a-3")
	listsBefore := f.gw.listCalls

	_, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionDeactivate,
		Confirmed: true,
	}, nil)
	require.Error(t, err)

	// All-or-nothing: no reload, selection and records exactly as before.
	assert.Equal(t, listsBefore, f.gw.listCalls)
	assert.Equal(t, 2, f.console.SelectionSize())
	for _, r := range f.console.SnapshotRecords() {
		assert.Equal(t, models.StatusActive, r.Status)
	}
	assert.Empty(t, f.stats.kinds)
	assert.Nil(t, f.console.bulkSelection)
}

func TestBulkDeleteShrinksSnapshot(t *testing.T) {
	f := newBulkFixture(t, makeStudents(6, 0))
	f.selectIDs(t, "a-0", "a-5")

	result, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionDelete,
		Confirmed: true,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Affected)

	assert.Len(t, f.console.SnapshotRecords(), 4)
	assert.Equal(t, 0, f.console.SelectionSize())
}

func TestBulkRejectedWhileBatchInFlight(t *testing.T) {
	f := newBulkFixture(t, makeStudents(2, 0))
	f.selectIDs(t, "a-0")

	f.console.mu.Lock()
	f.console.bulkSelection = map[string]struct{}{"a-1": {}}
	f.console.mu.Unlock()

	_, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionBan,
		Confirmed: true,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBulkInFlight.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, f.gw.bulkCalls)
}

func TestBulkRejectedWhileSelectedRecordTransitions(t *testing.T) {
	f := newBulkFixture(t, makeStudents(2, 0))
	f.selectIDs(t, "a-0", "a-1")

	f.console.mu.Lock()
	f.console.inflight["a-1"] = struct{}{}
	f.console.mu.Unlock()

	_, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionBan,
		Confirmed: true,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransitionInFlight.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, f.gw.bulkCalls)
}

func TestBulkExportKeepsSelection(t *testing.T) {
	f := newBulkFixture(t, makeStudents(3, 0))
	f.selectIDs(t, "a-0", "a-2")

	result, err := f.svc.Apply(context.Background(), f.console, dto.BulkRequest{
		Action:    models.ActionExport,
		Format:    "pdf",
		Confirmed: true,
	}, nil)
	require.NoError(t, err)

	// Export renders locally: the platform is never called and the
	// selection survives for a follow-up action.
	assert.Equal(t, 0, f.gw.bulkCalls)
	assert.Equal(t, 1, f.exporter.calls)
	assert.Equal(t, models.KindStudent, f.exporter.lastKind)
	assert.Equal(t, "pdf", f.exporter.lastFormat)
	assert.Len(t, f.exporter.lastRecords, 2)
	assert.Equal(t, "export queued", result.Message)
	require.NotNil(t, result.Export)
	assert.Equal(t, "job-1", result.Export.JobID)
	assert.Equal(t, 2, f.console.SelectionSize())

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionExport, f.audit.logs[0].Action)
}

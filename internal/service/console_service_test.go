package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-console/internal/models"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

// stubGateway is the in-memory platform shared by the service tests.
type stubGateway struct {
	mu      sync.Mutex
	records []models.Record

	listCalls   int
	updateCalls int
	bulkCalls   int
	batchCalls  int

	listErr   error
	updateErr error
	bulkErr   error
	batchErr  error

	bulkMessage    string
	lastBulkIDs    []string
	lastBulkAction models.ActionKind

	batchMessage string
	batchCreated int

	stats map[string]int
}

func (g *stubGateway) ListRecords(ctx context.Context, kind models.Kind, params models.ViewParameters) ([]models.Record, *models.Pagination, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, nil, g.listErr
	}
	out := make([]models.Record, len(g.records))
	copy(out, g.records)
	return out, &models.Pagination{Page: 1, PageSize: params.PageSize, TotalCount: len(out)}, nil
}

func (g *stubGateway) UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	if g.updateErr != nil {
		return g.updateErr
	}
	for i := range g.records {
		if g.records[i].ID == id {
			g.records[i].Status = status
		}
	}
	return nil
}

func (g *stubGateway) BulkAction(ctx context.Context, kind models.Kind, ids []string, action models.ActionKind) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bulkCalls++
	g.lastBulkIDs = ids
	g.lastBulkAction = action
	if g.bulkErr != nil {
		return "", g.bulkErr
	}
	if action == models.ActionDelete {
		kept := g.records[:0]
		deleted := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			deleted[id] = struct{}{}
		}
		for _, r := range g.records {
			if _, gone := deleted[r.ID]; !gone {
				kept = append(kept, r)
			}
		}
		g.records = kept
	}
	return g.bulkMessage, nil
}

func (g *stubGateway) BatchCreate(ctx context.Context, kind models.Kind, rows []models.ImportRow) (string, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batchCalls++
	if g.batchErr != nil {
		return "", 0, g.batchErr
	}
	return g.batchMessage, g.batchCreated, nil
}

func (g *stubGateway) GetStats(ctx context.Context, kind models.Kind) (map[string]int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats, nil
}

func newTestConsoleService(gw *stubGateway) *ConsoleService {
	return NewConsoleService(gw, ConsoleServiceConfig{DefaultPageSize: 10, MaxPageSize: 100}, nil)
}

func mountStudentConsole(t *testing.T, svc *ConsoleService) *Console {
	t.Helper()
	console, _, err := svc.Mount(context.Background(), "op-1", models.KindStudent)
	require.NoError(t, err)
	return console
}

func TestConsoleMountLoadsSnapshot(t *testing.T) {
	gw := &stubGateway{records: makeStudents(12, 13)}
	svc := newTestConsoleService(gw)

	_, view, err := svc.Mount(context.Background(), "op-1", models.KindStudent)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.listCalls)
	assert.Equal(t, 25, view.TotalMatching)
	assert.Equal(t, 3, view.TotalPages)
	assert.Len(t, view.Slice, 10)
}

func TestConsoleMountUnknownKind(t *testing.T) {
	svc := newTestConsoleService(&stubGateway{})
	_, _, err := svc.Mount(context.Background(), "op-1", models.Kind("projects"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConsoleViewEditsAreLocal(t *testing.T) {
	gw := &stubGateway{records: makeStudents(12, 13)}
	svc := newTestConsoleService(gw)
	mountStudentConsole(t, svc)
	require.Equal(t, 1, gw.listCalls)

	view, params, err := svc.UpdateView(context.Background(), "op-1", models.KindStudent, models.ViewParameters{
		StatusFilter: "banned",
		PageSize:     10,
		Page:         2,
	})
	require.NoError(t, err)
	assert.Equal(t, 13, view.TotalMatching)
	assert.Equal(t, 2, view.TotalPages)
	assert.Len(t, view.Slice, 3)
	assert.Equal(t, 2, params.Page)

	// Filter edits never refetch.
	assert.Equal(t, 1, gw.listCalls)
}

func TestConsoleUpdateViewClampsPage(t *testing.T) {
	gw := &stubGateway{records: makeStudents(12, 13)}
	svc := newTestConsoleService(gw)
	mountStudentConsole(t, svc)

	view, params, err := svc.UpdateView(context.Background(), "op-1", models.KindStudent, models.ViewParameters{
		StatusFilter: "banned",
		PageSize:     10,
		Page:         9,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, params.Page)
	assert.Len(t, view.Slice, 3)
}

func TestConsoleUpdateViewRejectsUnknownKnobs(t *testing.T) {
	svc := newTestConsoleService(&stubGateway{records: makeStudents(3, 0)})
	mountStudentConsole(t, svc)

	_, _, err := svc.UpdateView(context.Background(), "op-1", models.KindStudent, models.ViewParameters{SortKey: "alphabetical"})
	require.Error(t, err)

	_, _, err = svc.UpdateView(context.Background(), "op-1", models.KindStudent, models.ViewParameters{StatusFilter: "published"})
	require.Error(t, err)
}

func TestConsoleSelectionUnknownIDsNotAdded(t *testing.T) {
	svc := newTestConsoleService(&stubGateway{records: makeStudents(3, 0)})
	mountStudentConsole(t, svc)

	size, unknown, err := svc.UpdateSelection("op-1", models.KindStudent, []string{"a-0", "a-1", "ghost"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
	assert.Equal(t, []string{"ghost"}, unknown)
}

func TestConsoleSelectionSurvivesFilters(t *testing.T) {
	svc := newTestConsoleService(&stubGateway{records: makeStudents(12, 13)})
	mountStudentConsole(t, svc)

	size, _, err := svc.UpdateSelection("op-1", models.KindStudent, []string{"a-0", "b-0"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, size)

	// A filter hiding every selected record must not prune the selection.
	_, _, err = svc.UpdateView(context.Background(), "op-1", models.KindStudent, models.ViewParameters{StatusFilter: "banned"})
	require.NoError(t, err)

	console, err := svc.Get("op-1", models.KindStudent)
	require.NoError(t, err)
	assert.Equal(t, 2, console.SelectionSize())
}

func TestConsoleRefreshPrunesDeletedSelection(t *testing.T) {
	gw := &stubGateway{records: makeStudents(5, 0)}
	svc := newTestConsoleService(gw)
	mountStudentConsole(t, svc)

	size, _, err := svc.UpdateSelection("op-1", models.KindStudent, []string{"a-0", "a-1"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, size)

	// a-1 disappears remotely; only the refresh makes the deletion visible.
	gw.mu.Lock()
	gw.records = append(gw.records[:1], gw.records[2:]...)
	gw.mu.Unlock()

	_, err = svc.Refresh(context.Background(), "op-1", models.KindStudent)
	require.NoError(t, err)

	console, err := svc.Get("op-1", models.KindStudent)
	require.NoError(t, err)
	assert.Equal(t, 1, console.SelectionSize())
}

func TestConsoleUnmountForgetsSession(t *testing.T) {
	svc := newTestConsoleService(&stubGateway{records: makeStudents(2, 0)})
	mountStudentConsole(t, svc)

	svc.Unmount("op-1", models.KindStudent)
	_, err := svc.Get("op-1", models.KindStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConsoleRemountResetsState(t *testing.T) {
	svc := newTestConsoleService(&stubGateway{records: makeStudents(4, 0)})
	mountStudentConsole(t, svc)

	size, _, err := svc.UpdateSelection("op-1", models.KindStudent, []string{"a-0"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, size)

	console, _, err := svc.Mount(context.Background(), "op-1", models.KindStudent)
	require.NoError(t, err)
	assert.Equal(t, 0, console.SelectionSize())
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/middleware"
	"github.com/noah-isme/lms-admin-console/internal/models"
	"github.com/noah-isme/lms-admin-console/internal/service"
)

// platformStub is an in-memory stand-in for the platform record API.
type platformStub struct {
	records []models.Record
	updates int
	bulks   int
}

func (p *platformStub) ListRecords(ctx context.Context, kind models.Kind, params models.ViewParameters) ([]models.Record, *models.Pagination, error) {
	out := make([]models.Record, len(p.records))
	copy(out, p.records)
	return out, &models.Pagination{Page: 1, PageSize: params.PageSize, TotalCount: len(out)}, nil
}

func (p *platformStub) UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) error {
	p.updates++
	for i := range p.records {
		if p.records[i].ID == id {
			p.records[i].Status = status
		}
	}
	return nil
}

func (p *platformStub) BulkAction(ctx context.Context, kind models.Kind, ids []string, action models.ActionKind) (string, error) {
	p.bulks++
	return "", nil
}

func (p *platformStub) BatchCreate(ctx context.Context, kind models.Kind, rows []models.ImportRow) (string, int, error) {
	return fmt.Sprintf("%d created", len(rows)), len(rows), nil
}

func (p *platformStub) GetStats(ctx context.Context, kind models.Kind) (map[string]int, error) {
	return map[string]int{"active": len(p.records)}, nil
}

func seedStudents(n int) []models.Record {
	records := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.Record{
			ID:        fmt.Sprintf("s-%d", i),
			Kind:      models.KindStudent,
			Name:      fmt.Sprintf("Student %d", i),
			Email:     fmt.Sprintf("student%d@lms.test", i),
			Status:    models.StatusActive,
			CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}
	return records
}

type handlerFixture struct {
	gw       *platformStub
	consoles *service.ConsoleService
	stats    *service.StatsService
}

func newHandlerFixture(records []models.Record) *handlerFixture {
	gw := &platformStub{records: records}
	consoles := service.NewConsoleService(gw, service.ConsoleServiceConfig{DefaultPageSize: 10, MaxPageSize: 100}, nil)
	cache := service.NewCacheService(nil, service.NewMetricsService(), 0, nil, false)
	stats := service.NewStatsService(gw, cache, nil)
	return &handlerFixture{gw: gw, consoles: consoles, stats: stats}
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asOperator(c *gin.Context, kind string) {
	c.Params = gin.Params{{Key: "kind", Value: kind}}
	c.Set(middleware.ContextOperatorKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestConsoleHandlerMount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newHandlerFixture(seedStudents(12))
	handler := NewConsoleHandler(f.consoles, f.stats)

	c, w := newGinContext(http.MethodPost, "/consoles/student/mount", nil)
	asOperator(c, "student")

	handler.Mount(c)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	require.Equal(t, float64(12), data["total_matching"])
	require.Equal(t, float64(2), data["total_pages"])
	require.Equal(t, float64(0), data["selection_size"])
}

func TestConsoleHandlerUnknownKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newHandlerFixture(nil)
	handler := NewConsoleHandler(f.consoles, f.stats)

	c, w := newGinContext(http.MethodPost, "/consoles/admins/mount", nil)
	asOperator(c, "admins")

	handler.Mount(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsoleHandlerViewRequiresMount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newHandlerFixture(seedStudents(3))
	handler := NewConsoleHandler(f.consoles, f.stats)

	c, w := newGinContext(http.MethodGet, "/consoles/student/view", nil)
	asOperator(c, "student")

	handler.View(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestConsoleHandlerSelectionReportsUnknownIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newHandlerFixture(seedStudents(3))
	handler := NewConsoleHandler(f.consoles, f.stats)

	mountCtx, _ := newGinContext(http.MethodPost, "/consoles/student/mount", nil)
	asOperator(mountCtx, "student")
	handler.Mount(mountCtx)

	payload, _ := json.Marshal(dto.SelectionRequest{Add: []string{"s-0", "ghost"}})
	c, w := newGinContext(http.MethodPatch, "/consoles/student/selection", payload)
	asOperator(c, "student")

	handler.UpdateSelection(c)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	require.Equal(t, float64(1), data["size"])
	require.Equal(t, []interface{}{"ghost"}, data["unknown"])
}

func TestConsoleHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newHandlerFixture(seedStudents(4))
	handler := NewConsoleHandler(f.consoles, f.stats)

	mountCtx, _ := newGinContext(http.MethodPost, "/consoles/student/mount", nil)
	asOperator(mountCtx, "student")
	handler.Mount(mountCtx)

	c, w := newGinContext(http.MethodGet, "/consoles/student/stats", nil)
	asOperator(c, "student")

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Platform map[string]int            `json:"platform"`
			Page     map[models.Status]int     `json:"page"`
		} `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 4, envelope.Data.Platform["active"])
	require.Equal(t, 4, envelope.Data.Page[models.StatusActive])
	require.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestRecordHandlerTransitionFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newHandlerFixture(seedStudents(2))
	transitions := service.NewTransitionService(f.gw, nil, nil, 5*time.Second, nil, nil)
	history := service.NewHistoryService(nil, nil, nil)
	handler := NewRecordHandler(f.consoles, transitions, history)
	consoleHandler := NewConsoleHandler(f.consoles, f.stats)

	mountCtx, _ := newGinContext(http.MethodPost, "/consoles/student/mount", nil)
	asOperator(mountCtx, "student")
	consoleHandler.Mount(mountCtx)

	// A denied confirmation is rejected before anything happens.
	payload, _ := json.Marshal(dto.TransitionRequest{Status: models.StatusBanned})
	c, w := newGinContext(http.MethodPost, "/consoles/student/records/s-0/transition", payload)
	asOperator(c, "student")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "s-0"})

	handler.Transition(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 0, f.gw.updates)

	// Confirmed, the transition applies and returns an undo affordance.
	payload, _ = json.Marshal(dto.TransitionRequest{Status: models.StatusBanned, Confirmed: true})
	c, w = newGinContext(http.MethodPost, "/consoles/student/records/s-0/transition", payload)
	asOperator(c, "student")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "s-0"})

	handler.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, f.gw.updates)

	data := decodeData(t, w)
	record := data["record"].(map[string]interface{})
	require.Equal(t, "banned", record["status"])
	undo := data["undo"].(map[string]interface{})
	require.NotEmpty(t, undo["token"])

	// And the undo restores the previous status.
	payload, _ = json.Marshal(dto.UndoRequest{Token: undo["token"].(string)})
	c, w = newGinContext(http.MethodPost, "/consoles/student/records/s-0/undo", payload)
	asOperator(c, "student")
	c.Params = append(c.Params, gin.Param{Key: "id", Value: "s-0"})

	handler.Undo(c)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	record = data["record"].(map[string]interface{})
	require.Equal(t, "active", record["status"])
}

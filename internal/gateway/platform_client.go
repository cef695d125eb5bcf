package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-admin-console/internal/models"
	"github.com/noah-isme/lms-admin-console/pkg/config"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
)

// Service is the abstract remote collaborator owning all records. The engine
// treats every failed call uniformly: timeout, network error, and server error
// all surface as a single remote failure and trigger the rollback path.
type Service interface {
	ListRecords(ctx context.Context, kind models.Kind, params models.ViewParameters) ([]models.Record, *models.Pagination, error)
	UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) error
	BulkAction(ctx context.Context, kind models.Kind, ids []string, action models.ActionKind) (string, error)
	BatchCreate(ctx context.Context, kind models.Kind, rows []models.ImportRow) (string, int, error)
	GetStats(ctx context.Context, kind models.Kind) (map[string]int, error)
}

// RemoteObserver receives timing for every platform call, successful or not.
type RemoteObserver interface {
	ObserveRemoteCall(method, path string, status int, duration time.Duration)
}

// PlatformClient talks to the platform record API over HTTP.
type PlatformClient struct {
	baseURL  string
	token    string
	http     *http.Client
	observer RemoteObserver
	logger   *zap.Logger
}

// NewPlatformClient constructs a client for the configured platform service.
// The observer may be nil.
func NewPlatformClient(cfg config.PlatformConfig, observer RemoteObserver, logger *zap.Logger) *PlatformClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PlatformClient{
		baseURL:  cfg.BaseURL,
		token:    cfg.ServiceToken,
		http:     &http.Client{Timeout: timeout},
		observer: observer,
		logger:   logger,
	}
}

type listEnvelope struct {
	Data       []models.Record    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
}

type messageEnvelope struct {
	Message string `json:"message"`
	Created int    `json:"created"`
}

type statsEnvelope struct {
	Data map[string]int `json:"data"`
}

// ListRecords fetches one page of records for the kind.
func (c *PlatformClient) ListRecords(ctx context.Context, kind models.Kind, params models.ViewParameters) ([]models.Record, *models.Pagination, error) {
	q := url.Values{}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.StatusFilter != "" && params.StatusFilter != models.StatusFilterAll {
		q.Set("status", params.StatusFilter)
	}
	if params.SortKey != "" {
		q.Set("sort", params.SortKey)
	}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("limit", strconv.Itoa(params.PageSize))
	if params.CreatedFrom != nil {
		q.Set("createdFrom", params.CreatedFrom.UTC().Format(time.RFC3339))
	}
	if params.CreatedTo != nil {
		q.Set("createdTo", params.CreatedTo.UTC().Format(time.RFC3339))
	}

	var envelope listEnvelope
	path := fmt.Sprintf("/%s/records?%s", kindPath(kind), q.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, nil, err
	}
	for i := range envelope.Data {
		envelope.Data[i].Kind = kind
	}
	return envelope.Data, envelope.Pagination, nil
}

// UpdateStatus persists a single status transition.
func (c *PlatformClient) UpdateStatus(ctx context.Context, kind models.Kind, id string, status models.Status) error {
	payload := map[string]string{"status": string(status)}
	path := fmt.Sprintf("/%s/records/%s/status", kindPath(kind), url.PathEscape(id))
	return c.do(ctx, http.MethodPatch, path, payload, nil)
}

// BulkAction applies one action to the full id list in a single batched call.
// The platform reports the whole batch as succeeded or failed.
func (c *PlatformClient) BulkAction(ctx context.Context, kind models.Kind, ids []string, action models.ActionKind) (string, error) {
	payload := map[string]interface{}{"ids": ids, "action": action}
	var envelope messageEnvelope
	path := fmt.Sprintf("/%s/records/bulk", kindPath(kind))
	if err := c.do(ctx, http.MethodPost, path, payload, &envelope); err != nil {
		return "", err
	}
	return envelope.Message, nil
}

// BatchCreate submits validated import rows as one create request.
func (c *PlatformClient) BatchCreate(ctx context.Context, kind models.Kind, rows []models.ImportRow) (string, int, error) {
	payload := map[string]interface{}{"rows": rows}
	var envelope messageEnvelope
	path := fmt.Sprintf("/%s/records/batch", kindPath(kind))
	if err := c.do(ctx, http.MethodPost, path, payload, &envelope); err != nil {
		return "", 0, err
	}
	return envelope.Message, envelope.Created, nil
}

// GetStats fetches authoritative platform-level aggregates for the kind.
func (c *PlatformClient) GetStats(ctx context.Context, kind models.Kind) (map[string]int, error) {
	var envelope statsEnvelope
	path := fmt.Sprintf("/%s/stats", kindPath(kind))
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (c *PlatformClient) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode platform request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build platform request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Query strings would explode metric cardinality.
	metricPath := path
	if i := strings.Index(metricPath, "?"); i >= 0 {
		metricPath = metricPath[:i]
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.observer != nil {
			c.observer.ObserveRemoteCall(method, metricPath, 0, time.Since(start))
		}
		c.logger.Warn("platform request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "platform request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if c.observer != nil {
		c.observer.ObserveRemoteCall(method, metricPath, resp.StatusCode, time.Since(start))
	}

	c.logger.Debug("platform request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return appErrors.Wrap(
			fmt.Errorf("platform returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw)),
			appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "platform request failed",
		)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, "decode platform response")
	}
	return nil
}

func kindPath(kind models.Kind) string {
	switch kind {
	case models.KindStudent:
		return "students"
	case models.KindInstructor:
		return "instructors"
	case models.KindCourse:
		return "courses"
	}
	return string(kind)
}

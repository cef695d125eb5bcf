package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-console/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  *service.MetricsService
	consoles *service.ConsoleService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, consoles *service.ConsoleService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, consoles: consoles}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// System returns an aggregate snapshot for the admin health page.
func (h *MetricsHandler) System(c *gin.Context) {
	snap := h.metrics.Snapshot()
	if h.consoles != nil {
		snap.MountedConsoles = h.consoles.Count()
	}
	c.JSON(http.StatusOK, snap)
}

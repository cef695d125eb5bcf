package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/models"
	"github.com/noah-isme/lms-admin-console/internal/service"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
	"github.com/noah-isme/lms-admin-console/pkg/response"
)

// BulkHandler exposes the bulk action orchestrator and the import pipeline.
type BulkHandler struct {
	consoles *service.ConsoleService
	bulk     *service.BulkService
	imports  *service.ImportService
	history  *service.HistoryService
}

// NewBulkHandler constructs handler.
func NewBulkHandler(consoles *service.ConsoleService, bulk *service.BulkService, imports *service.ImportService, history *service.HistoryService) *BulkHandler {
	return &BulkHandler{consoles: consoles, bulk: bulk, imports: imports, history: history}
}

// Apply godoc
// @Summary Apply one action to the current selection
// @Tags Bulk
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param payload body dto.BulkRequest true "Action and confirmation"
// @Success 200 {object} response.Envelope{data=dto.BulkResult}
// @Security BearerAuth
// @Router /consoles/{kind}/bulk [post]
func (h *BulkHandler) Apply(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	var req dto.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload"))
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.bulk.Apply(c.Request.Context(), console, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Import godoc
// @Summary Parse and submit a CSV import payload
// @Tags Imports
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param payload body dto.ImportRequest true "Raw CSV text"
// @Success 200 {object} response.Envelope{data=models.ImportSummary}
// @Security BearerAuth
// @Router /consoles/{kind}/import [post]
func (h *BulkHandler) Import(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload"))
		return
	}
	rows, discarded := h.imports.Parse(req.Text)
	summary, err := h.imports.Submit(c.Request.Context(), kind, rows, discarded, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ImportHistory godoc
// @Summary Past import submissions
// @Tags Imports
// @Produce json
// @Param kind path string true "Entity kind"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consoles/{kind}/imports [get]
func (h *BulkHandler) ImportHistory(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	jobs, total, err := h.history.ImportHistory(c.Request.Context(), models.ImportJobFilter{
		Kind:       kind,
		OperatorID: c.Query("operatorId"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

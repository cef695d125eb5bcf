package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/service"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
	"github.com/noah-isme/lms-admin-console/pkg/response"
)

// RecordHandler exposes per-record status transitions and their undo.
type RecordHandler struct {
	consoles    *service.ConsoleService
	transitions *service.TransitionService
	history     *service.HistoryService
}

// NewRecordHandler constructs handler.
func NewRecordHandler(consoles *service.ConsoleService, transitions *service.TransitionService, history *service.HistoryService) *RecordHandler {
	return &RecordHandler{consoles: consoles, transitions: transitions, history: history}
}

// Transition godoc
// @Summary Apply one status transition to a record
// @Tags Records
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param id path string true "Record ID"
// @Param payload body dto.TransitionRequest true "Target status and confirmation"
// @Success 200 {object} response.Envelope{data=dto.TransitionResult}
// @Security BearerAuth
// @Router /consoles/{kind}/records/{id}/transition [post]
func (h *RecordHandler) Transition(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload"))
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.transitions.Transition(c.Request.Context(), console, c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Undo godoc
// @Summary Invoke the undo affordance of a prior transition
// @Tags Records
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param id path string true "Record ID"
// @Param payload body dto.UndoRequest true "Undo token"
// @Success 200 {object} response.Envelope{data=dto.TransitionResult}
// @Security BearerAuth
// @Router /consoles/{kind}/records/{id}/undo [post]
func (h *RecordHandler) Undo(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	var req dto.UndoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid undo payload"))
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.transitions.Undo(c.Request.Context(), console, c.Param("id"), req.Token, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Trail godoc
// @Summary Audit trail for one record
// @Tags Records
// @Produce json
// @Param kind path string true "Entity kind"
// @Param id path string true "Record ID"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consoles/{kind}/records/{id}/audit [get]
func (h *RecordHandler) Trail(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.history.RecordTrail(c.Request.Context(), kind, c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

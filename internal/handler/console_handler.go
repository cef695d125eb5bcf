package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-console/internal/dto"
	"github.com/noah-isme/lms-admin-console/internal/models"
	"github.com/noah-isme/lms-admin-console/internal/service"
	appErrors "github.com/noah-isme/lms-admin-console/pkg/errors"
	"github.com/noah-isme/lms-admin-console/pkg/response"
)

// ConsoleHandler exposes console session lifecycle and view endpoints.
type ConsoleHandler struct {
	consoles *service.ConsoleService
	stats    *service.StatsService
}

// NewConsoleHandler constructs handler.
func NewConsoleHandler(consoles *service.ConsoleService, stats *service.StatsService) *ConsoleHandler {
	return &ConsoleHandler{consoles: consoles, stats: stats}
}

func parseKindParam(c *gin.Context) (models.Kind, bool) {
	kind, ok := models.ParseKind(c.Param("kind"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown console kind"))
		return "", false
	}
	return kind, true
}

// Mount godoc
// @Summary Mount a console for an entity kind
// @Tags Consoles
// @Produce json
// @Param kind path string true "Entity kind (students, instructors, courses)"
// @Success 200 {object} response.Envelope{data=dto.ConsoleView}
// @Security BearerAuth
// @Router /consoles/{kind}/mount [post]
func (h *ConsoleHandler) Mount(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	console, view, err := h.consoles.Mount(c.Request.Context(), operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, consoleView(kind, console, view), nil)
}

// Unmount godoc
// @Summary Unmount a console
// @Tags Consoles
// @Produce json
// @Param kind path string true "Entity kind"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /consoles/{kind} [delete]
func (h *ConsoleHandler) Unmount(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	h.consoles.Unmount(operatorID(c), kind)
	response.JSON(c, http.StatusOK, gin.H{"message": "console unmounted"}, nil)
}

// View godoc
// @Summary Current derived view
// @Tags Consoles
// @Produce json
// @Param kind path string true "Entity kind"
// @Success 200 {object} response.Envelope{data=dto.ConsoleView}
// @Security BearerAuth
// @Router /consoles/{kind}/view [get]
func (h *ConsoleHandler) View(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	view, _, err := h.consoles.View(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, consoleView(kind, console, view), nil)
}

// UpdateView godoc
// @Summary Edit view parameters
// @Tags Consoles
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param payload body models.ViewParameters true "View parameters"
// @Success 200 {object} response.Envelope{data=dto.ConsoleView}
// @Security BearerAuth
// @Router /consoles/{kind}/view [put]
func (h *ConsoleHandler) UpdateView(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	var params models.ViewParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid view payload"))
		return
	}
	view, _, err := h.consoles.UpdateView(c.Request.Context(), operatorID(c), kind, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, consoleView(kind, console, view), nil)
}

// UpdateSelection godoc
// @Summary Add or remove selected records
// @Tags Consoles
// @Accept json
// @Produce json
// @Param kind path string true "Entity kind"
// @Param payload body dto.SelectionRequest true "Selection changes"
// @Success 200 {object} response.Envelope{data=dto.SelectionResult}
// @Security BearerAuth
// @Router /consoles/{kind}/selection [patch]
func (h *ConsoleHandler) UpdateSelection(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	var req dto.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload"))
		return
	}
	size, unknown, err := h.consoles.UpdateSelection(operatorID(c), kind, req.Add, req.Remove)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SelectionResult{Size: size, Unknown: unknown}, nil)
}

// Refresh godoc
// @Summary Refetch the console snapshot
// @Tags Consoles
// @Produce json
// @Param kind path string true "Entity kind"
// @Success 200 {object} response.Envelope{data=dto.ConsoleView}
// @Security BearerAuth
// @Router /consoles/{kind}/refresh [post]
func (h *ConsoleHandler) Refresh(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	view, err := h.consoles.Refresh(c.Request.Context(), operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, consoleView(kind, console, view), nil)
}

// Stats godoc
// @Summary Platform aggregates plus local per-status counts
// @Tags Consoles
// @Produce json
// @Param kind path string true "Entity kind"
// @Success 200 {object} response.Envelope{data=dto.StatsResponse}
// @Security BearerAuth
// @Router /consoles/{kind}/stats [get]
func (h *ConsoleHandler) Stats(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	console, err := h.consoles.Get(operatorID(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}

	platform, cacheHit, err := h.stats.Platform(c.Request.Context(), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := service.CountByStatus(console.SnapshotRecords(), console.Descriptor())

	response.JSON(c, http.StatusOK, dto.StatsResponse{Platform: platform, Page: page}, nil,
		map[string]interface{}{"cache_hit": cacheHit})
}

func consoleView(kind models.Kind, console *service.Console, view models.DerivedView) dto.ConsoleView {
	return dto.ConsoleView{
		Kind:          kind,
		Params:        console.Params(),
		Slice:         view.Slice,
		TotalMatching: view.TotalMatching,
		TotalPages:    view.TotalPages,
		SelectionSize: console.SelectionSize(),
	}
}

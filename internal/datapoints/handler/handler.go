package handler

import (
	"net/http"

	"fieldsurvey/internal/datapoints/service"
	"fieldsurvey/internal/datapoints/transport"
	"fieldsurvey/internal/record"
	"fieldsurvey/platform/httpkit"
	"fieldsurvey/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid data point id"
)

// New registers the palette rule used by the request bodies on val.
func New(svc *service.Service, val *validator.Validator) *Handler {
	_ = val.RegisterStringRule("palette", record.IsPaletteColor)
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the data point routes on a group rooted at
// /surveys/:surveyId/data-points.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Replace)
	rg.PATCH("/:id", h.Patch)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if !httpkit.BindJSON(c, req) {
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.UUID{}, false
	}
	return id, true
}

// List returns the survey's data points in creation order.
// GET /api/v1/surveys/:surveyId/data-points
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context(), c.Param("surveyId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// POST /api/v1/surveys/:surveyId/data-points
func (h *Handler) Create(c *gin.Context) {
	uid, ok := httpkit.RequireUserID(c)
	if !ok {
		return
	}

	var req transport.CreateRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), uid, c.Param("surveyId"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GET /api/v1/surveys/:surveyId/data-points/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), c.Param("surveyId"), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PUT /api/v1/surveys/:surveyId/data-points/:id
func (h *Handler) Replace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ReplaceRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Replace(c.Request.Context(), c.Param("surveyId"), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Patch updates only the fields present in the body.
// PATCH /api/v1/surveys/:surveyId/data-points/:id
func (h *Handler) Patch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.PatchRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.svc.Patch(c.Request.Context(), c.Param("surveyId"), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DELETE /api/v1/surveys/:surveyId/data-points/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), c.Param("surveyId"), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

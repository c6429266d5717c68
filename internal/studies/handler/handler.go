package handler

import (
	"fieldsurvey/internal/studies/service"
	"fieldsurvey/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for studies and surveys.
type Handler struct {
	svc *service.Service
}

// New creates a new studies handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// List returns every study.
// GET /api/v1/studies
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns a single study.
// GET /api/v1/studies/:id
func (h *Handler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetSurvey returns a single survey.
// GET /api/v1/surveys/:surveyId
func (h *Handler) GetSurvey(c *gin.Context) {
	result, err := h.svc.GetSurveyResponse(c.Request.Context(), c.Param("surveyId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

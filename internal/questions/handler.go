package questions

import (
	"fieldsurvey/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// RenderRequest asks the server to lay out a form.
type RenderRequest struct {
	Fields  []string `json:"fields" binding:"required,min=1"`
	Answers Answers  `json:"answers"`
}

// RenderResponse is the laid out form.
type RenderResponse struct {
	Selectors   []Selector `json:"selectors"`
	TotalHeight float64    `json:"total_height"`
}

// Handler exposes the question schema.
type Handler struct {
	schema *Schema
}

func NewHandler(schema *Schema) *Handler {
	return &Handler{schema: schema}
}

// List handles GET /api/v1/questions
func (h *Handler) List(c *gin.Context) {
	httpkit.OK(c, h.schema)
}

// Render handles POST /api/v1/questions/render
func (h *Handler) Render(c *gin.Context) {
	var req RenderRequest
	if !httpkit.BindJSON(c, &req) {
		return
	}
	if err := h.schema.ValidateFields(req.Fields); httpkit.HandleError(c, err) {
		return
	}

	selectors := h.schema.Render(req.Fields, req.Answers, DefaultLayout)
	httpkit.OK(c, RenderResponse{Selectors: selectors, TotalHeight: TotalHeight(selectors)})
}

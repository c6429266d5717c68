// Package exports renders survey data points to CSV and publishes them
// through object storage.
package exports

import (
	"net/http"

	"fieldsurvey/internal/adapters/storage"
	apphttp "fieldsurvey/internal/http"
	"fieldsurvey/platform/httpkit"
	"fieldsurvey/platform/logger"

	"github.com/gin-gonic/gin"
)

type Module struct {
	svc *Service
}

// NewModule wires the export route. store is nil when MinIO is not
// configured and every export then answers 503.
func NewModule(source SheetSource, store storage.ObjectStore, bucket string, log *logger.Logger) *Module {
	return &Module{svc: NewService(source, store, bucket, log)}
}

func (m *Module) Name() string { return "exports" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/surveys/:surveyId/exports", m.export)
}

// POST /api/v1/surveys/:surveyId/exports
func (m *Module) export(c *gin.Context) {
	result, err := m.svc.Export(c.Request.Context(), c.Param("surveyId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

var _ apphttp.Module = (*Module)(nil)

// Package studies provides the read-only studies and surveys module.
package studies

import (
	apphttp "fieldsurvey/internal/http"
	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/studies/handler"
	"fieldsurvey/internal/studies/repository"
	"fieldsurvey/internal/studies/service"
	"fieldsurvey/platform/logger"
)

// Module is the studies bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the module on top of repo, which is either the Postgres
// repository or the demo fixtures.
func NewModule(repo repository.Repository, schema *questions.Schema, log *logger.Logger) *Module {
	svc := service.New(repo, schema, log)
	return &Module{handler: handler.New(svc), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "studies"
}

// Service returns the service layer, used by the data point module to look
// up surveys.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts study routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/studies", m.handler.List)
	ctx.Protected.GET("/studies/:id", m.handler.Get)
	ctx.Protected.GET("/surveys/:surveyId", m.handler.GetSurvey)
}

var _ apphttp.Module = (*Module)(nil)

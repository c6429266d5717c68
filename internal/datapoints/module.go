// Package datapoints provides the survey data point module: the observations
// volunteers record, stored in Postgres and mirrored to the document store
// through events.
package datapoints

import (
	"fieldsurvey/internal/datapoints/handler"
	"fieldsurvey/internal/datapoints/repository"
	"fieldsurvey/internal/datapoints/service"
	"fieldsurvey/internal/events"
	apphttp "fieldsurvey/internal/http"
	"fieldsurvey/internal/questions"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the data points bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the module. surveys resolves survey ids, normally through
// the studies module.
func NewModule(pool *pgxpool.Pool, surveys service.SurveyReader, schema *questions.Schema, eventBus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	return newModule(repository.New(pool), surveys, schema, eventBus, log, val)
}

func newModule(repo repository.Repository, surveys service.SurveyReader, schema *questions.Schema, eventBus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(repo, surveys, schema, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "datapoints"
}

// Service returns the service layer, used by the exports module.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts data point routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/surveys/:surveyId/data-points"))
}

var _ apphttp.Module = (*Module)(nil)

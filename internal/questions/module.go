package questions

import (
	apphttp "fieldsurvey/internal/http"
)

// Module wires the question schema HTTP routes.
type Module struct {
	schema  *Schema
	handler *Handler
}

func NewModule(schema *Schema) *Module {
	return &Module{schema: schema, handler: NewHandler(schema)}
}

// Schema returns the schema shared with the data point module.
func (m *Module) Schema() *Schema {
	return m.schema
}

func (m *Module) Name() string {
	return "questions"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/questions")
	group.GET("", m.handler.List)
	group.POST("/render", m.handler.Render)
}

var _ apphttp.Module = (*Module)(nil)

// Package auth wires volunteer accounts: sign-up, sign-in, token refresh and
// password reset, plus the /users/me profile route.
package auth

import (
	"fieldsurvey/internal/auth/handler"
	"fieldsurvey/internal/auth/repository"
	"fieldsurvey/internal/auth/service"
	"fieldsurvey/internal/events"
	apphttp "fieldsurvey/internal/http"
	"fieldsurvey/platform/config"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

// NewModule builds the auth module on the users and tokens tables. Sign-up
// and reset requests publish events the notification module mails out.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, eventBus events.Bus, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(repository.New(pool), cfg, eventBus, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string { return "auth" }

// RegisterRoutes mounts /auth/* publicly behind the auth rate limiter and
// /users/me behind the bearer token.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/auth", ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(group)

	ctx.Protected.GET("/users/me", m.handler.GetMe)
}

var (
	_ apphttp.Module = (*Module)(nil)
	_ service.Store  = (*repository.Repository)(nil)
)

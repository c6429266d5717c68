// Package http holds what the router needs from main: the assembled App and
// the Module contract every HTTP-facing package implements.
package http

import (
	"context"

	"fieldsurvey/platform/config"
	"fieldsurvey/platform/events"
	"fieldsurvey/platform/httpkit"
	"fieldsurvey/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is a dependency reported on /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and handed to router.New.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   map[string]HealthChecker // keyed by the name shown in the health report
	EventBus events.Bus
	Modules  []Module
}

// Module is one bounded context that mounts routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module gets to mount its routes on. Survey data
// routes go on Protected; only auth mounts public routes on V1.
type RouterContext struct {
	Engine          *gin.Engine
	V1              *gin.RouterGroup // /api/v1, no authentication
	Protected       *gin.RouterGroup // /api/v1 behind the bearer token middleware
	Config          config.JWTConfig
	AuthMiddleware  gin.HandlerFunc
	AuthRateLimiter *httpkit.AuthRateLimiter
}

package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "fieldsurvey/internal/http"
	"fieldsurvey/platform/logger"

	"github.com/gin-gonic/gin"
)

type routerConfig struct{}

func (routerConfig) GetHTTPAddr() string        { return ":0" }
func (routerConfig) GetCORSAllowAll() bool      { return false }
func (routerConfig) GetCORSOrigins() []string   { return []string{"http://localhost:19006"} }
func (routerConfig) GetCORSAllowCreds() bool    { return true }
func (routerConfig) GetJWTAccessSecret() string { return "secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }
func (pingModule) RegisterRoutes(rc *apphttp.RouterContext) {
	rc.V1.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rc.Protected.GET("/secret", func(c *gin.Context) { c.Status(http.StatusOK) })
}

func newEngine(health map[string]apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  routerConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestModulesMountedUnderV1(t *testing.T) {
	engine := newEngine(nil)

	if rec := serve(engine, http.MethodGet, "/api/v1/ping"); rec.Code != http.StatusOK {
		t.Fatalf("expected public route 200, got %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/secret"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected protected route 401, got %d", rec.Code)
	}
	if rec := serve(engine, http.MethodGet, "/api/v1/nope"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	healthy := newEngine(map[string]apphttp.HealthChecker{"postgres": pinger{}})
	if rec := serve(healthy, http.MethodGet, "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	degraded := newEngine(map[string]apphttp.HealthChecker{
		"postgres": pinger{},
		"redis":    pinger{err: errors.New("refused")},
	})
	if rec := serve(degraded, http.MethodGet, "/api/health"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

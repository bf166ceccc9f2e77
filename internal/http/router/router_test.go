package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apphttp "prospector_backend/internal/http"
	"prospector_backend/platform/logger"
)

const testSecret = "test-secret"

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"https://dashboard.test"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return testSecret }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/public", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/private", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Admin.GET("/stats", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

type health struct{ err error }

func (h health) Ping(context.Context) error { return h.err }

func newEngine(h apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  h,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   "operator-1",
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(engine *gin.Engine, path, bearer string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouteGroups(t *testing.T) {
	engine := newEngine(health{})

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"health", "/api/health", "", http.StatusOK},
		{"public", "/api/v1/public", "", http.StatusNoContent},
		{"private without token", "/api/v1/private", "", http.StatusUnauthorized},
		{"private with token", "/api/v1/private", token(t), http.StatusNoContent},
		{"admin without role", "/api/v1/admin/stats", token(t), http.StatusForbidden},
		{"admin with role", "/api/v1/admin/stats", token(t, "admin"), http.StatusNoContent},
		{"garbage token", "/api/v1/private", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := do(engine, tt.path, tt.token); got != tt.want {
				t.Fatalf("GET %s = %d, want %d", tt.path, got, tt.want)
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	if got := do(newEngine(health{}), "/api/ready", ""); got != http.StatusOK {
		t.Fatalf("ready = %d, want 200", got)
	}
	if got := do(newEngine(health{err: errors.New("db down")}), "/api/ready", ""); got != http.StatusServiceUnavailable {
		t.Fatalf("ready = %d, want 503", got)
	}
}

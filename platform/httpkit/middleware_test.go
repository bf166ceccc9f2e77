package httpkit

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prospector_backend/platform/apperr"
	"prospector_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRequireRoleForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/admin", func(c *gin.Context) {
		c.Set(ContextOperatorIDKey, "op-1")
		c.Set(ContextRolesKey, []string{"operator"})
		c.Next()
	}, RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := serve(engine, http.MethodGet, "/admin")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "role admin required") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHandleErrorUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/queue", func(c *gin.Context) {
		HandleError(c, apperr.Unavailable("task queue unavailable", errors.New("redis down")).WithDetails("retry later"))
	})

	rec := serve(engine, http.MethodGet, "/queue")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"details":"retry later"`) || strings.Contains(body, "redis down") {
		t.Fatalf("body = %s", body)
	}
}

func TestRequestLoggerLogsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	engine := gin.New()
	engine.Use(RequestLogger(logger.NewWithWriter("production", &buf)))
	engine.GET("/boom", func(c *gin.Context) {
		HandleError(c, errors.New("pool exhausted"))
	})
	engine.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	serve(engine, http.MethodGet, "/boom")
	out := buf.String()
	if !strings.Contains(out, `"msg":"http_error"`) || !strings.Contains(out, "pool exhausted") {
		t.Fatalf("log = %s", out)
	}

	buf.Reset()
	serve(engine, http.MethodGet, "/ok")
	if !strings.Contains(buf.String(), `"msg":"http_request"`) {
		t.Fatalf("log = %s", buf.String())
	}
}

package scheduler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeInspector struct {
	stats QueueStats
	err   error
}

func (f fakeInspector) Pending() (QueueStats, error) { return f.stats, f.err }

func getQueueStats(q QueueInspector) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/admin/queue", NewModule(q).Stats)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/queue", nil))
	return rec
}

func TestQueueStats(t *testing.T) {
	rec := getQueueStats(fakeInspector{stats: QueueStats{Queue: "prospector", Scheduled: 9, Dead: 1}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"scheduled":9`) || !strings.Contains(body, `"dead":1`) {
		t.Fatalf("body = %s", body)
	}
}

func TestQueueStatsError(t *testing.T) {
	rec := getQueueStats(fakeInspector{err: errors.New("redis down")})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "task queue unavailable") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

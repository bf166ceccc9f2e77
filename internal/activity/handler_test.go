package activity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeFeed struct {
	leadID *uuid.UUID
	limit  int
	err    error
}

func (f *fakeFeed) List(_ context.Context, leadID *uuid.UUID, limit int) ([]Entry, error) {
	f.leadID, f.limit = leadID, limit
	return []Entry{{ID: uuid.New(), Kind: KindScanCompleted, Message: "scan done"}}, f.err
}

func (f *fakeFeed) ListScanRuns(_ context.Context, limit int) ([]ScanRun, error) {
	f.limit = limit
	return []ScanRun{{ID: uuid.New(), Trigger: "manual", Found: 4}}, f.err
}

func serveFeed(feed Feed, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	m := NewModule(feed)
	engine.GET("/activity", m.List)
	engine.GET("/scan-runs", m.ScanRuns)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListFiltersByLead(t *testing.T) {
	feed := &fakeFeed{}
	id := uuid.New()
	rec := serveFeed(feed, "/activity?leadId="+id.String()+"&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if feed.leadID == nil || *feed.leadID != id || feed.limit != 5 {
		t.Fatalf("feed called with lead=%v limit=%d", feed.leadID, feed.limit)
	}
	if !strings.Contains(rec.Body.String(), "scan done") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestListRejectsBadLeadID(t *testing.T) {
	rec := serveFeed(&fakeFeed{}, "/activity?leadId=nope")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScanRunsSurfaceStoreErrors(t *testing.T) {
	rec := serveFeed(&fakeFeed{err: errors.New("db down")}, "/scan-runs")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

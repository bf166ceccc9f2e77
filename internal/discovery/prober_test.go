package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prospector_backend/internal/leads/domain"
)

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthy":
			_, _ = w.Write([]byte("<html><body><h1>Bakkerij Jansen</h1><p>Vers brood</p></body></html>"))
		case "/parked":
			_, _ = w.Write([]byte("<html><body>This Domain Is For Sale! Contact us.</body></html>"))
		case "/empty":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProber(2 * time.Second)
	tests := []struct {
		name    string
		website string
		want    domain.WebsiteStatus
	}{
		{"no website", "  ", domain.WebsiteNone},
		{"healthy", srv.URL + "/healthy", domain.WebsiteHealthy},
		{"parked", srv.URL + "/parked", domain.WebsiteParked},
		{"empty page", srv.URL + "/empty", domain.WebsiteParked},
		{"not found", srv.URL + "/gone", domain.WebsiteDead},
		{"unreachable", "http://127.0.0.1:1", domain.WebsiteDead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Probe(context.Background(), tt.website); got != tt.want {
				t.Fatalf("Probe(%q) = %s, want %s", tt.website, got, tt.want)
			}
		})
	}
}

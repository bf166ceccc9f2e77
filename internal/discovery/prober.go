package discovery

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"prospector_backend/internal/leads/domain"
)

const (
	defaultProbeTimeout = 8 * time.Second
	probeReadLimit      = 64 << 10
	probeUserAgent      = "Mozilla/5.0 (compatible; ProspectorBot/1.0)"
)

// parkedMarkers are phrases that domain parking pages and registrar placeholders share.
var parkedMarkers = []string{
	"domain is for sale",
	"this domain may be for sale",
	"buy this domain",
	"domain parking",
	"parked free",
	"parkingcrew",
	"sedoparking",
	"this domain has been registered",
	"deze domeinnaam is geregistreerd",
	"website coming soon",
	"under construction",
}

// Prober classifies a business website.
type Prober struct {
	client *http.Client
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{client: &http.Client{Timeout: timeout}}
}

// Probe reports none for an empty URL, dead when the site cannot be fetched or errors,
// parked when the page looks like a placeholder, and healthy otherwise.
func (p *Prober) Probe(ctx context.Context, website string) domain.WebsiteStatus {
	website = strings.TrimSpace(website)
	if website == "" {
		return domain.WebsiteNone
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, website, nil)
	if err != nil {
		return domain.WebsiteDead
	}
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.WebsiteDead
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.WebsiteDead
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, probeReadLimit))
	if err != nil {
		return domain.WebsiteDead
	}
	if isParked(string(body)) {
		return domain.WebsiteParked
	}
	return domain.WebsiteHealthy
}

func isParked(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range parkedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.TrimSpace(lower) == ""
}

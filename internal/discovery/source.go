// Package discovery finds local businesses without a working website and adds them to the pipeline.
package discovery

import (
	"context"
	"encoding/json"

	"prospector_backend/internal/settings"
)

// Business is one result from a discovery source.
type Business struct {
	ExternalID  string
	Name        string
	Address     string
	Phone       string
	Email       string
	Website     string
	Rating      *float64
	ReviewCount int
	HasPhotos   bool
	Raw         json.RawMessage
}

// Source searches a business directory for one category in one location.
type Source interface {
	Search(ctx context.Context, target settings.ScanTarget) ([]Business, error)
}

package webhook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"prospector_backend/internal/adapters/storage"
	"prospector_backend/internal/leads/domain"
)

// PayloadArchive keeps raw inbound payloads in object storage, one folder per channel and day.
type PayloadArchive struct {
	store  storage.ObjectStore
	bucket string
	now    func() time.Time
	newID  func() string
}

func NewPayloadArchive(store storage.ObjectStore, bucket string) *PayloadArchive {
	return &PayloadArchive{
		store:  store,
		bucket: bucket,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}
}

// Store uploads raw and returns its object key.
func (a *PayloadArchive) Store(ctx context.Context, channel domain.Channel, contentType string, raw []byte) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	key := fmt.Sprintf("%s/%s/payload_%s%s", channel, a.now().UTC().Format("2006/01/02"), a.newID(), extensionFor(contentType))
	if err := a.store.PutObject(ctx, a.bucket, key, contentType, raw); err != nil {
		return "", err
	}
	return key, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		return ".json"
	case strings.HasPrefix(contentType, "message/rfc822"):
		return ".eml"
	default:
		return ".txt"
	}
}

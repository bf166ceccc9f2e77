package storage

import (
	"fmt"
	"mime"
)

// MaxPayloadSize is the largest inbound payload kept in the archive.
const MaxPayloadSize int64 = 5 << 20

// AllowedContentTypes defines the payload types accepted by the archive.
var AllowedContentTypes = map[string]bool{
	"application/json":                  true,
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
	"message/rfc822":                    true,
	"text/plain":                        true,
}

// ValidateContentType checks the media type, ignoring parameters such as charset.
func ValidateContentType(contentType string) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	if !AllowedContentTypes[mediaType] {
		return fmt.Errorf("content type %s is not allowed", mediaType)
	}
	return nil
}

// ValidateSize rejects empty and oversized payloads.
func ValidateSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("payload is empty")
	}
	if sizeBytes > MaxPayloadSize {
		return fmt.Errorf("payload size %d exceeds maximum of %d bytes", sizeBytes, MaxPayloadSize)
	}
	return nil
}

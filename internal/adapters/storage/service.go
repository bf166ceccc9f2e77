// Package storage is the S3-compatible object store holding raw inbound reply payloads.
package storage

import "context"

// ObjectStore is the subset of S3 operations the archive needs.
type ObjectStore interface {
	// PutObject writes data under key. Content type and size are validated first.
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	EnsureBucketExists(ctx context.Context, bucket string) error
}

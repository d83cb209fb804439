// Package blob stores image payloads in S3-compatible object storage.
package blob

import "context"

// UploadOptions controls how an object is written. CacheControl is a
// max-age in seconds or a full Cache-Control value. With Upsert false an
// existing object at the same path makes the upload fail.
type UploadOptions struct {
	CacheControl string
	Upsert       bool
	ContentType  string
}

type Store interface {
	Upload(ctx context.Context, path string, body []byte, opts UploadOptions) error
	PublicURL(path string) string
	Remove(ctx context.Context, paths []string) error
}

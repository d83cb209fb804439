// Package metadata stores small key/value pairs of the local session, such
// as the refresh token and the signed-in email, in SQLite.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyRefreshToken = "refresh_token"
	KeyEmail        = "email"
	KeyServerURL    = "server_url"
)

type Repository interface {
	// Get returns common.ErrorNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}

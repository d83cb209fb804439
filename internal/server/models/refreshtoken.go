package models

import "time"

// RefreshToken is a server-stored refresh token. Tokens are single use:
// a refresh deletes the presented one and issues a new pair.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Package common contains shared constants and sentinel errors used across
// clientkeeper components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on API requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// DateLayout is the calendar-date wire format used by the API and CSV files.
	DateLayout = "2006-01-02"
)

package models

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p Profile) IsAdmin() bool {
	return p.Role == "admin"
}

// User is the signed-in account. ProfileFallback is set when the server
// could not load the profile and substituted a plain user profile.
type User struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Profile         Profile `json:"profile"`
	DisplayName     string  `json:"display_name"`
	ProfileFallback bool    `json:"profile_fallback"`
}

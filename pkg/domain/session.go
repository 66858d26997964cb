package domain

// Session is the authenticated state of one client: both tokens plus the
// cached user profile. The three parts are always replaced together.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         SessionUser `json:"user"`
}

// Verification is the payload returned by the token verification endpoint.
type Verification struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

package auth

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	AuthMethod string `json:"auth_method"` // "jwt", "provider"
}

// IsAdmin reports whether the session belongs to an admin account
func (s *SessionData) IsAdmin() bool {
	return s.Role == "admin"
}

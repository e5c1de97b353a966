package models

// UserIdentity identifies an authenticated user. It is immutable once
// established for a session and replaced wholesale on re-login.
type UserIdentity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Session is the identity context for the current interaction.
// It is mutated only by the auth manager; every other component reads
// value snapshots.
type Session struct {
	Identity        UserIdentity `json:"identity"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsReady         bool         `json:"isReady"`
}

// AnonymousSession returns a ready, unauthenticated session.
func AnonymousSession() Session {
	return Session{IsReady: true}
}

// IsAdmin reports whether the session carries admin privileges.
// Admin status is trusted only as delivered by the backend.
func (s Session) IsAdmin() bool {
	return s.IsAuthenticated && s.Identity.IsAdmin
}

// Username returns the authenticated username, or the empty string for
// an anonymous session.
func (s Session) Username() string {
	if !s.IsAuthenticated {
		return ""
	}
	return s.Identity.Username
}

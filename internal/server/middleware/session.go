package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/leadbox/leadbox/internal/service"
)

// SessionCookieName is the cookie holding the signed admin session.
const SessionCookieName = "leadbox_session"

// Sessions stores the admin session in a signed, expiring cookie.
type Sessions struct {
	auth   *service.AuthService
	secure bool
}

// NewSessions creates a cookie session manager. secure sets the cookie's
// Secure attribute and should be on whenever the site is served over HTTPS.
func NewSessions(auth *service.AuthService, secure bool) *Sessions {
	return &Sessions{auth: auth, secure: secure}
}

// Login marks the client as an authenticated admin.
func (s *Sessions) Login(w http.ResponseWriter) error {
	token, expires, err := s.auth.IssueSession()
	if err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout clears the session cookie. It is safe to call without a session.
func (s *Sessions) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsAdmin reports whether r carries a valid, unexpired admin session.
func (s *Sessions) IsAdmin(r *http.Request) bool {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	return s.auth.ValidateSession(c.Value) == nil
}

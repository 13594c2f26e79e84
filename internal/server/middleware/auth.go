package middleware

import "net/http"

// Authorizer decides whether a request comes from the admin.
type Authorizer interface {
	IsAdmin(r *http.Request) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(r *http.Request) bool

// IsAdmin calls f(r).
func (f AuthorizerFunc) IsAdmin(r *http.Request) bool { return f(r) }

// RequireAdmin lets admin requests through and redirects everyone else to
// loginPath with 302 Found.
func RequireAdmin(authz Authorizer, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authz.IsAdmin(r) {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CapEditContent is the capability required for every admin operation.
const CapEditContent = "edit_content"

// Modes.
const (
	ModeDisabled = "disabled"
	ModeToken    = "token"
)

// Authorizer decides which capabilities a request carries. In token mode a
// matching bearer token grants CapEditContent; in disabled mode everything
// is allowed.
type Authorizer struct {
	mode  string
	token string
}

// NewAuthorizer returns an Authorizer for mode.
func NewAuthorizer(mode, token string) *Authorizer {
	return &Authorizer{mode: mode, token: token}
}

// Can reports whether r holds capability.
func (a *Authorizer) Can(r *http.Request, capability string) bool {
	if a.mode != ModeToken {
		return true
	}
	if capability != CapEditContent {
		return false
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	given := strings.TrimPrefix(auth, "Bearer ")
	return a.token != "" && subtle.ConstantTimeCompare([]byte(given), []byte(a.token)) == 1
}

// Require returns middleware rejecting requests without capability with 401.
// onDeny writes the rejection.
func (a *Authorizer) Require(capability string, onDeny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Can(r, capability) {
				onDeny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

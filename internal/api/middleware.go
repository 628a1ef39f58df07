// Package api implements the admin REST API and the public head endpoint using chi.
package api

import (
	"log/slog"
	"net/http"

	"github.com/topwebdesignco/advanced-schema-manager/internal/auth"
)

// NonceHeader carries the action token on mutating requests.
const NonceHeader = "X-ASM-Nonce"

// RequireCapability rejects requests lacking capability with 401.
func RequireCapability(a *auth.Authorizer, capability string) func(http.Handler) http.Handler {
	return a.Require(capability, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
	})
}

// requestNonce returns the action token from the header or the nonce query
// parameter.
func requestNonce(r *http.Request) string {
	if v := r.Header.Get(NonceHeader); v != "" {
		return v
	}
	return r.URL.Query().Get("nonce")
}

// checkNonce verifies the request's token for action and writes 403 when it
// fails. It reports whether the request may proceed.
func (h *Handler) checkNonce(w http.ResponseWriter, r *http.Request, action string) bool {
	if err := h.nonces.Verify(requestNonce(r), action); err != nil {
		slog.Warn("nonce rejected", slog.String("action", action), slog.String("error", err.Error()))
		writeJSON(w, http.StatusForbidden, errorBody("invalid or expired request token"))
		return false
	}
	return true
}

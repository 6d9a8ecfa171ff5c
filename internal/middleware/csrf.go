package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const csrfHeader = "X-CSRF-Token"

// EnforceCSRF checks the double-submit header on mutating routes against
// the token minted with the session. The flag lets local tooling opt out.
func EnforceCSRF(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
				return
			}
			token := strings.TrimSpace(r.Header.Get(csrfHeader))
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(actor.CSRFToken)) != 1 {
				writeError(w, r, http.StatusForbidden, "CSRF_INVALID", "Invalid CSRF token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import "net/http"

// RequireRole gates a route to actors holding one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Role is not permitted to perform this action", map[string]string{"role": actor.Role})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claudyio484/lastbite-backend/internal/auth"
	"github.com/claudyio484/lastbite-backend/internal/store"
)

// SessionStore resolves session cookies to principals; *store.Store
// satisfies it.
type SessionStore interface {
	GetSessionPrincipalByTokenHash(ctx context.Context, tokenHash string) (store.SessionPrincipal, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID) error
}

type AuthMiddleware struct {
	Sessions   SessionStore
	CookieName string
}

func (m AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
			return
		}

		principal, err := m.Sessions.GetSessionPrincipalByTokenHash(r.Context(), auth.HashToken(cookie.Value))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Session is invalid", nil)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load session", nil)
			return
		}

		_ = m.Sessions.TouchSession(r.Context(), principal.SessionID)

		ctx := WithActor(r.Context(), Actor{
			SessionID:  principal.SessionID.String(),
			UserID:     principal.UserID.String(),
			TenantID:   principal.TenantID.String(),
			Email:      principal.Email,
			FullName:   principal.FullName,
			Role:       principal.Role,
			TenantSlug: principal.TenantSlug,
			TenantName: principal.TenantName,
			CSRFToken:  principal.CSRFToken,
			ExpiresAt:  principal.ExpiresAt,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

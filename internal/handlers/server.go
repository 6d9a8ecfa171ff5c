package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/claudyio484/lastbite-backend/internal/audit"
	"github.com/claudyio484/lastbite-backend/internal/auth"
	"github.com/claudyio484/lastbite-backend/internal/config"
	"github.com/claudyio484/lastbite-backend/internal/httpx"
	"github.com/claudyio484/lastbite-backend/internal/importer"
	"github.com/claudyio484/lastbite-backend/internal/middleware"
	"github.com/claudyio484/lastbite-backend/internal/store"
)

// Store is the persistence surface the handlers need; *store.Store
// satisfies it.
type Store interface {
	ListActiveUsersByEmail(ctx context.Context, email string) ([]store.User, error)
	CreateSession(ctx context.Context, params store.SessionParams) (uuid.UUID, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string) error
	RevokeSessionByID(ctx context.Context, sessionID, tenantID uuid.UUID) error
	GetDiscountSettings(ctx context.Context, tenantID uuid.UUID) (store.DiscountSettings, error)
	SaveDiscountSettings(ctx context.Context, tenantID uuid.UUID, settings store.DiscountSettings) error
}

// Confirmer runs the commit stage of the import pipeline;
// *importer.Committer satisfies it.
type Confirmer interface {
	Commit(ctx context.Context, tenantID uuid.UUID, in importer.CommitInput) (importer.CommitResult, error)
}

type Server struct {
	Config    config.Config
	Store     Store
	Committer Confirmer
	Audit     *audit.Logger
	Logger    *slog.Logger
}

func NewServer(cfg config.Config, st Store, committer Confirmer, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	return &Server{Config: cfg, Store: st, Committer: committer, Audit: auditLogger, Logger: logger}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) PostAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body", nil)
		return
	}

	users, err := s.Store.ListActiveUsersByEmail(r.Context(), string(req.Email))
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user", nil)
		return
	}

	var matched *store.User
	for i := range users {
		user := users[i]
		ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil {
			httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Password verification failed", nil)
			return
		}
		if ok {
			matched = &user
			break
		}
	}

	if matched == nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}

	if old, err := r.Cookie(s.Config.SessionCookieName); err == nil && old.Value != "" {
		_ = s.Store.RevokeSessionByTokenHash(r.Context(), auth.HashToken(old.Value))
	}

	sessionToken, err := auth.GenerateToken()
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session", nil)
		return
	}
	csrfToken, err := auth.GenerateToken()
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create CSRF token", nil)
		return
	}

	_, err = s.Store.CreateSession(r.Context(), store.SessionParams{
		TenantID:  matched.TenantID,
		UserID:    matched.ID,
		TokenHash: auth.HashToken(sessionToken),
		CSRFToken: csrfToken,
		ExpiresAt: time.Now().Add(s.Config.SessionTTL),
	})
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save session", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Config.SecureCookies,
		Expires:  time.Now().Add(s.Config.SessionTTL),
	})

	userID := matched.ID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   matched.TenantID,
		UserID:     &userID,
		Action:     "auth.login",
		EntityType: "session",
		RequestID:  middleware.RequestIDFromContext(r.Context()),
	})

	httpx.WriteJSON(w, http.StatusOK, AuthSessionResponse{
		User: User{
			ID:       matched.ID,
			Email:    openapi_types.Email(matched.Email),
			FullName: matched.FullName,
			Role:     matched.Role,
		},
		Tenant: Tenant{
			ID:   matched.TenantID,
			Slug: matched.TenantSlug,
			Name: matched.TenantName,
		},
	})
}

func (s *Server) PostAuthLogout(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(actor.SessionID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid session", nil)
		return
	}

	if err := s.Store.RevokeSessionByID(r.Context(), sessionID, tenantID); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke session", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Config.SecureCookies,
		MaxAge:   -1,
	})

	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     "auth.logout",
		EntityType: "session",
		RequestID:  middleware.RequestIDFromContext(r.Context()),
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AuthSessionResponse{
		User:   User{ID: userID, Email: openapi_types.Email(actor.Email), FullName: actor.FullName, Role: actor.Role},
		Tenant: Tenant{ID: tenantID, Slug: actor.TenantSlug, Name: actor.TenantName},
	})
}

func (s *Server) GetAuthCsrf(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": actor.CSRFToken})
}

func requireActorIDs(w http.ResponseWriter, r *http.Request) (middleware.Actor, uuid.UUID, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return middleware.Actor{}, uuid.Nil, uuid.Nil, false
	}
	tenantID, err := uuid.Parse(actor.TenantID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid tenant", nil)
		return middleware.Actor{}, uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(actor.UserID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user", nil)
		return middleware.Actor{}, uuid.Nil, uuid.Nil, false
	}
	return actor, tenantID, userID, true
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/claudyio484/lastbite-backend/internal/auth"
	"github.com/claudyio484/lastbite-backend/internal/store"
)

func seedUser(t *testing.T, env *testEnv, email, password, role string) store.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := store.User{
		ID:           uuid.New(),
		TenantID:     env.tenantID,
		Email:        email,
		FullName:     "Seeded User",
		Role:         role,
		PasswordHash: hash,
		TenantSlug:   "corner-store",
		TenantName:   "Corner Store",
	}
	env.store.users = append(env.store.users, user)
	return user
}

func loginBody(t *testing.T, email, password string) *bytes.Buffer {
	t.Helper()
	body := &bytes.Buffer{}
	if err := json.NewEncoder(body).Encode(map[string]string{"email": email, "password": password}); err != nil {
		t.Fatalf("encode login body: %v", err)
	}
	return body
}

func TestPostAuthLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "owner@store.example", "Password123!", "OWNER")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, user.Email, "Password123!"))
	rr := httptest.NewRecorder()
	env.server.PostAuthLogin(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp AuthSessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.ID != user.ID || resp.User.Role != "OWNER" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
	if resp.Tenant.Slug != "corner-store" {
		t.Fatalf("unexpected tenant payload: %+v", resp.Tenant)
	}

	if len(env.store.sessions) != 1 {
		t.Fatalf("expected one session created, got %d", len(env.store.sessions))
	}
	cookies := rr.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == env.server.Config.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("expected session cookie set")
	}
	if !sessionCookie.HttpOnly {
		t.Fatal("expected HttpOnly session cookie")
	}
	if env.store.sessions[0].TokenHash != auth.HashToken(sessionCookie.Value) {
		t.Fatal("stored token hash does not match cookie value")
	}
}

func TestPostAuthLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "owner@store.example", "Password123!", "OWNER")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, user.Email, "nope"))
	rr := httptest.NewRecorder()
	env.server.PostAuthLogin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if len(env.store.sessions) != 0 {
		t.Fatal("expected no session created")
	}
}

func TestPostAuthLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, "ghost@store.example", "whatever"))
	rr := httptest.NewRecorder()
	env.server.PostAuthLogin(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGetAuthMeReturnsActor(t *testing.T) {
	env := newTestEnv(t)

	req := env.authed(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	rr := httptest.NewRecorder()
	env.server.GetAuthMe(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp AuthSessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.ID != env.userID || resp.User.Role != "OWNER" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestGetAuthMeRequiresActor(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rr := httptest.NewRecorder()
	env.server.GetAuthMe(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestPostAuthLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	req := env.authed(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	rr := httptest.NewRecorder()
	env.server.PostAuthLogout(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expired session cookie, got %+v", cookies)
	}
}

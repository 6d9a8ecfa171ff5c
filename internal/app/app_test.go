package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claudyio484/lastbite-backend/internal/audit"
	"github.com/claudyio484/lastbite-backend/internal/auth"
	"github.com/claudyio484/lastbite-backend/internal/config"
	"github.com/claudyio484/lastbite-backend/internal/importer"
	"github.com/claudyio484/lastbite-backend/internal/store"
)

type sessionRec struct {
	id      uuid.UUID
	params  store.SessionParams
	revoked bool
}

// routerFake backs the assembled router in place of Postgres. It
// implements both the handler store and the session resolver so a
// login immediately becomes resolvable by the auth middleware.
type routerFake struct {
	mu       sync.Mutex
	users    []store.User
	sessions map[string]*sessionRec
	settings map[uuid.UUID]store.DiscountSettings
}

func newRouterFake() *routerFake {
	return &routerFake{
		sessions: make(map[string]*sessionRec),
		settings: make(map[uuid.UUID]store.DiscountSettings),
	}
}

func (f *routerFake) addUser(t *testing.T, email, password, role string) store.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := store.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Email:        email,
		FullName:     "Test User",
		Role:         role,
		PasswordHash: hash,
		TenantSlug:   "test-store",
		TenantName:   "Test Store",
	}
	f.mu.Lock()
	f.users = append(f.users, u)
	f.mu.Unlock()
	return u
}

func (f *routerFake) ListActiveUsersByEmail(_ context.Context, email string) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.User
	for _, u := range f.users {
		if u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *routerFake) CreateSession(_ context.Context, params store.SessionParams) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &sessionRec{id: uuid.New(), params: params}
	f.sessions[params.TokenHash] = rec
	return rec.id, nil
}

func (f *routerFake) RevokeSessionByTokenHash(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.sessions[tokenHash]; ok {
		rec.revoked = true
	}
	return nil
}

func (f *routerFake) RevokeSessionByID(_ context.Context, sessionID, tenantID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.sessions {
		if rec.id == sessionID && rec.params.TenantID == tenantID {
			rec.revoked = true
		}
	}
	return nil
}

func (f *routerFake) GetSessionPrincipalByTokenHash(_ context.Context, tokenHash string) (store.SessionPrincipal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.sessions[tokenHash]
	if !ok || rec.revoked || rec.params.ExpiresAt.Before(time.Now()) {
		return store.SessionPrincipal{}, pgx.ErrNoRows
	}
	for _, u := range f.users {
		if u.ID == rec.params.UserID {
			return store.SessionPrincipal{
				SessionID:  rec.id,
				UserID:     u.ID,
				TenantID:   u.TenantID,
				Email:      u.Email,
				FullName:   u.FullName,
				Role:       u.Role,
				TenantSlug: u.TenantSlug,
				TenantName: u.TenantName,
				CSRFToken:  rec.params.CSRFToken,
				ExpiresAt:  rec.params.ExpiresAt,
			}, nil
		}
	}
	return store.SessionPrincipal{}, pgx.ErrNoRows
}

func (f *routerFake) TouchSession(_ context.Context, _ uuid.UUID) error { return nil }

func (f *routerFake) GetDiscountSettings(_ context.Context, tenantID uuid.UUID) (store.DiscountSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if settings, ok := f.settings[tenantID]; ok {
		return settings, nil
	}
	return store.DefaultDiscountSettings(), nil
}

func (f *routerFake) SaveDiscountSettings(_ context.Context, tenantID uuid.UUID, settings store.DiscountSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[tenantID] = settings
	return nil
}

func (f *routerFake) InsertAuditRow(_ context.Context, _ store.AuditRow) error { return nil }

type stubConfirmer struct{}

func (stubConfirmer) Commit(_ context.Context, _ uuid.UUID, _ importer.CommitInput) (importer.CommitResult, error) {
	return importer.CommitResult{BatchID: uuid.New(), PublishedCount: 1}, nil
}

func newAppRouter(t *testing.T) (http.Handler, *routerFake) {
	t.Helper()
	cfg := config.Config{
		OpenAPISpecPath:    "../../openapi.yaml",
		SessionCookieName:  "lb_sess",
		SessionTTL:         time.Hour,
		CSRFEnforce:        true,
		Env:                "test",
		APIMaxBodyBytes:    2 * 1024 * 1024,
		ImportMaxFileBytes: 10 * 1024 * 1024,
		ImportMaxRows:      50000,
	}
	fake := newRouterFake()
	router, err := NewRouter(cfg, Dependencies{
		Store:     fake,
		Sessions:  fake,
		Committer: stubConfirmer{},
		Audit:     audit.NewLogger(fake),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router, fake
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, cookie *http.Cookie, csrf string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler, email, password string) *http.Cookie {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "lb_sess" && c.Value != "" {
			return c
		}
	}
	t.Fatal("login response missing session cookie")
	return nil
}

func csrfToken(t *testing.T, router http.Handler, cookie *http.Cookie) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodGet, "/api/auth/csrf", nil, cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf fetch returned %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	return payload.CSRFToken
}

func TestLoginMeLogoutFlow(t *testing.T) {
	router, fake := newAppRouter(t)
	fake.addUser(t, "owner@example.com", "Password123!", "OWNER")

	cookie := login(t, router, "owner@example.com", "Password123!")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/me", nil, cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("auth/me returned %d: %s", rec.Code, rec.Body.String())
	}
	var me struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
		Tenant struct {
			Slug string `json:"slug"`
		} `json:"tenant"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode auth/me: %v", err)
	}
	if me.User.Role != "OWNER" || me.Tenant.Slug != "test-store" {
		t.Fatalf("unexpected principal: %+v", me)
	}

	csrf := csrfToken(t, router, cookie)
	rec = doJSON(t, router, http.MethodPost, "/api/auth/logout", nil, cookie, csrf)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/auth/me", nil, cookie, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router, fake := newAppRouter(t)
	fake.addUser(t, "owner@example.com", "Password123!", "OWNER")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "owner@example.com",
		"password": "wrong",
	}, nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequestValidatorRejectsMalformedLogin(t *testing.T) {
	router, _ := newAppRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "owner@example.com",
	}, nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from request validation, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %q", envelope.Error.Code)
	}
}

func TestImportsRequireCSRFToken(t *testing.T) {
	router, fake := newAppRouter(t)
	fake.addUser(t, "owner@example.com", "Password123!", "OWNER")

	cookie := login(t, router, "owner@example.com", "Password123!")
	rec := doJSON(t, router, http.MethodPost, "/api/imports/validate", validatePayload(), cookie, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStaffRoleCannotUseImports(t *testing.T) {
	router, fake := newAppRouter(t)
	fake.addUser(t, "staff@example.com", "Password123!", "STAFF")

	cookie := login(t, router, "staff@example.com", "Password123!")
	rec := doJSON(t, router, http.MethodGet, "/api/imports/rules", nil, cookie, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for STAFF, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestValidateReturnsPreview(t *testing.T) {
	router, fake := newAppRouter(t)
	fake.addUser(t, "owner@example.com", "Password123!", "OWNER")

	cookie := login(t, router, "owner@example.com", "Password123!")
	csrf := csrfToken(t, router, cookie)

	rec := doJSON(t, router, http.MethodPost, "/api/imports/validate", validatePayload(), cookie, csrf)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate returned %d: %s", rec.Code, rec.Body.String())
	}
	var preview importer.Preview
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.TotalRows != 1 || preview.Retained != 1 {
		t.Fatalf("unexpected preview counts: %+v", preview)
	}
}

func TestConfirmCommitsBatch(t *testing.T) {
	router, fake := newAppRouter(t)
	fake.addUser(t, "owner@example.com", "Password123!", "OWNER")

	cookie := login(t, router, "owner@example.com", "Password123!")
	csrf := csrfToken(t, router, cookie)

	rec := doJSON(t, router, http.MethodPost, "/api/imports/confirm", validatePayload(), cookie, csrf)
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm returned %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		BatchID        uuid.UUID `json:"batch_id"`
		PublishedCount int       `json:"published_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode confirm response: %v", err)
	}
	if result.BatchID == uuid.Nil || result.PublishedCount != 1 {
		t.Fatalf("unexpected confirm result: %+v", result)
	}
}

func TestHealthIsPublic(t *testing.T) {
	router, _ := newAppRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func validatePayload() map[string]any {
	expiry := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	return map[string]any{
		"columns": []string{"SKU", "Name", "Expiry", "Qty", "Price"},
		"rows": []map[string]string{
			{"SKU": "ABC-001", "Name": "Rye Bread", "Expiry": expiry, "Qty": "4", "Price": "5.00"},
		},
		"mapping": map[string]string{
			"sku":         "SKU",
			"name":        "Name",
			"expiry_date": "Expiry",
			"quantity":    "Qty",
			"price":       "Price",
		},
		"window_days": 7,
	}
}


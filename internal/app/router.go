package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/claudyio484/lastbite-backend/internal/audit"
	"github.com/claudyio484/lastbite-backend/internal/config"
	"github.com/claudyio484/lastbite-backend/internal/handlers"
	"github.com/claudyio484/lastbite-backend/internal/httpx"
	"github.com/claudyio484/lastbite-backend/internal/metrics"
	"github.com/claudyio484/lastbite-backend/internal/middleware"
)

// Dependencies carries the wired services; production wiring passes
// *store.Store for both Store and Sessions.
type Dependencies struct {
	Store     handlers.Store
	Sessions  middleware.SessionStore
	Committer handlers.Confirmer
	Audit     *audit.Logger
	Logger    *slog.Logger
}

func NewRouter(cfg config.Config, deps Dependencies) (http.Handler, error) {
	if _, err := os.Stat(cfg.OpenAPISpecPath); err != nil {
		return nil, fmt.Errorf("openapi spec not found at %s: %w", cfg.OpenAPISpecPath, err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(cfg.OpenAPISpecPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	metrics.Init()

	validator := openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "VALIDATION_FAILED", Message: message},
				RequestID: requestID,
			})
		},
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.Logging(deps.Logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		// Upload and row-carrying payloads are far larger than ordinary
		// JSON bodies.
		{PathPrefix: "/imports/parse", MaxBytes: cfg.ImportMaxFileBytes + 2*1024*1024},
		{PathPrefix: "/imports/validate", MaxBytes: 4 * cfg.ImportMaxFileBytes},
		{PathPrefix: "/imports/confirm", MaxBytes: 4 * cfg.ImportMaxFileBytes},
	}))

	r.Handle("/metrics", metrics.Handler())

	h := handlers.NewServer(cfg, deps.Store, deps.Committer, deps.Audit, deps.Logger)
	authMW := middleware.AuthMiddleware{Sessions: deps.Sessions, CookieName: cfg.SessionCookieName}
	loginLimiter := middleware.NewLoginRateLimiter(10, time.Minute)
	enforceCSRF := middleware.EnforceCSRF(cfg.CSRFEnforce)
	requireImportRole := middleware.RequireRole(middleware.RoleOwner, middleware.RoleAdmin)

	api := chi.NewRouter()

	api.Group(func(public chi.Router) {
		public.Use(validator)
		public.With(loginLimiter.Middleware).Post("/auth/login", h.PostAuthLogin)
		public.Get("/health", h.GetHealth)
	})

	api.Group(func(protected chi.Router) {
		protected.Use(authMW.RequireAuth)

		protected.Group(func(jsonAPI chi.Router) {
			jsonAPI.Use(validator)
			jsonAPI.Get("/auth/me", h.GetAuthMe)
			jsonAPI.Get("/auth/csrf", h.GetAuthCsrf)
			jsonAPI.With(enforceCSRF).Post("/auth/logout", h.PostAuthLogout)

			jsonAPI.Group(func(imports chi.Router) {
				imports.Use(requireImportRole)
				imports.Get("/imports/rules", h.GetImportsRules)
				imports.With(enforceCSRF).Put("/imports/rules", h.PutImportsRules)
				imports.With(enforceCSRF).Post("/imports/validate", h.PostImportsValidate)
				imports.With(enforceCSRF).Post("/imports/confirm", h.PostImportsConfirm)
			})
		})

		// The multipart upload bypasses the request validator so oversized
		// bodies surface as 413 instead of a validator read failure.
		protected.With(requireImportRole, enforceCSRF).Post("/imports/parse", h.PostImportsParse)
	})

	r.Mount("/api", api)
	return r, nil
}

package middleware

import (
	"net/http"
	"strings"
)

// BodyLimitOverride raises or lowers the body cap for a path prefix.
// The import routes carry spreadsheet payloads far larger than the
// default JSON cap.
type BodyLimitOverride struct {
	PathPrefix string
	MaxBytes   int64
}

func LimitBodyBytes(maxBytes int64) func(http.Handler) http.Handler {
	return LimitBodyBytesWithOverrides(maxBytes, nil)
}

func LimitBodyBytesWithOverrides(defaultMax int64, overrides []BodyLimitOverride) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maxBytes := limitFor(r.URL.Path, defaultMax, overrides)
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitFor(path string, defaultMax int64, overrides []BodyLimitOverride) int64 {
	// Overrides are written against the mounted route, so match both the
	// full path and the path without the /api mount prefix.
	apiPath := strings.TrimPrefix(path, "/api")
	for _, override := range overrides {
		if override.PathPrefix == "" || override.MaxBytes <= 0 {
			continue
		}
		if strings.HasPrefix(path, override.PathPrefix) || strings.HasPrefix(apiPath, override.PathPrefix) {
			return override.MaxBytes
		}
	}
	return defaultMax
}

package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError mirrors the envelope httpx.WriteError produces. The
// middleware package keeps its own copy because httpx depends on the
// request-id helpers defined here.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	type errorBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error     errorBody `json:"error"`
		RequestID string    `json:"requestId"`
	}{
		Error:     errorBody{Code: code, Message: message, Details: details},
		RequestID: RequestIDFromContext(r.Context()),
	})
}

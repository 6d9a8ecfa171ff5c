package httpx

import (
	"net/http"

	"github.com/claudyio484/lastbite-backend/internal/middleware"
)

// ErrorEnvelope is the API-wide error shape. Code carries an uppercase
// machine code (VALIDATION_FAILED, PARSE_FAILED, ...) that clients
// branch on; Message is human-readable and unstable.
type ErrorEnvelope struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"requestId"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	WriteJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

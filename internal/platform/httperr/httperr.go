// Package httperr writes error responses shaped for the caller: JSON for htmx
// requests, plain text for browsers.
package httperr

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Write sends status with a machine code and human message.
func Write(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if r != nil && strings.EqualFold(r.Header.Get("HX-Request"), "true") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(envelope{
			Error:     code,
			Message:   message,
			RequestID: middleware.GetReqID(r.Context()),
		})
		return
	}
	http.Error(w, message, status)
}

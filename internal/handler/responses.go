package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"encoding/json"

	"github.com/villagehub/bizdir/internal/aisearch"
	"github.com/villagehub/bizdir/internal/domain"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// User-facing error messages for service errors
const (
	ErrMsgGenericServerError  = "Something went wrong"
	ErrMsgInvalidRequestError = "Invalid request. Please check your inputs."
	ErrMsgNotFoundError       = "Listing not found"
	ErrMsgUnauthorizedError   = "Admin sign-in required"
	ErrMsgRemoteError         = "Could not reach the directory service. Please try again."
)

// mapServiceErrorToUserMessage converts service errors to HTTP status codes
// and messages the user can act on. AI search errors carry their own
// user-facing category text.
func mapServiceErrorToUserMessage(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgGenericServerError
	}

	var aiErr *aisearch.Error
	if errors.As(err, &aiErr) {
		status := http.StatusBadGateway
		switch aiErr.Category {
		case aisearch.CategoryNotConfigured, aisearch.CategoryKeyMissing, aisearch.CategoryUnsupportedModel:
			status = http.StatusServiceUnavailable
		case aisearch.CategoryRateLimited:
			status = http.StatusTooManyRequests
		case aisearch.CategoryAuth:
			status = http.StatusBadGateway
		}
		return status, aiErr.Message()
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrMsgNotFoundError
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, ErrMsgUnauthorizedError
	case errors.Is(err, domain.ErrRemote):
		return http.StatusBadGateway, ErrMsgRemoteError
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}

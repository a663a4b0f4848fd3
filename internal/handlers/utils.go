package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/helpdesk-io/apiserver/internal/services"
	"github.com/helpdesk-io/apiserver/internal/token"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// claimsFromContext returns the verified token claims injected by the auth
// middleware.
func claimsFromContext(ctx context.Context) (token.Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(token.Claims)
	if !ok || claims.Email == "" {
		return token.Claims{}, errors.New("missing claims")
	}
	return claims, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeFieldErrors reports independently-checkable input failures as a
// field-to-message map.
func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, ValidationResponse{
		Message: "Validation failed",
		Errors:  fields,
	})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ValidationResponse carries per-field validation messages.
type ValidationResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// writeServiceError maps a domain error onto an HTTP status. Anything
// unclassified becomes a 500 with a generic body; the underlying error
// never reaches the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		writeFieldErrors(w, validation.Fields)
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrUsernameTaken), errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, "User already exists")
	default:
		writeError(w, http.StatusInternalServerError, "Unexpected error occurred")
	}
}

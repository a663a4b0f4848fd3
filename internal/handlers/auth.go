package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/helpdesk-io/apiserver/internal/services"
	"github.com/helpdesk-io/apiserver/internal/token"
)

// AuthHandler provides registration, login, and password-change endpoints.
type AuthHandler struct {
	authService *services.AuthService
	issuer      *token.Issuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, issuer *token.Issuer) *AuthHandler {
	return &AuthHandler{authService: authService, issuer: issuer}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, issuer *token.Issuer) {
	handler := NewAuthHandler(authService, issuer)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(RequireAuth(issuer)).Post("/change-password", handler.ChangePassword)
}

// RequireAuth enforces bearer-token authentication and injects the verified
// claims into the request context.
func RequireAuth(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new end-user account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fields := map[string]string{}
	if req.Username == "" {
		fields["username"] = "Username is required"
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = "A valid email is required"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	tok, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{Token: tok})
}

// Login verifies credentials and returns a token. A missing account and a
// wrong password produce the same response, so callers cannot enumerate
// accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	tok, err := h.authService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: tok})
}

// ChangePassword replaces the authenticated account's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	fields := map[string]string{}
	if req.CurrentPassword == "" {
		fields["currentPassword"] = "Current password is required"
	}
	if req.NewPassword == "" {
		fields["newPassword"] = "New password is required"
	}
	if req.ConfirmPassword == "" {
		fields["confirmPassword"] = "Password confirmation is required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	// The password-change path resolves its account by username, so the
	// token subject is mapped to the account's username first.
	account, err := h.authService.ResolveSubject(r.Context(), claims.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	err = h.authService.ChangePassword(r.Context(), account.Username, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadCurrentPassword):
			writeFieldErrors(w, map[string]string{"currentPassword": "Current password is incorrect"})
		case errors.Is(err, services.ErrSamePassword):
			writeFieldErrors(w, map[string]string{"newPassword": "New password must differ from the current password"})
		default:
			writeServiceError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", errors.New("invalid authorization")
	}
	return raw, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/ticketdesk/internal/auth"
	"github.com/BradenHooton/ticketdesk/internal/services"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
)

// AuthServiceInterface defines the interface for account business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, name, email, password, ipAddress string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	Logout(ctx context.Context, userID, ipAddress string) error
}

// PasswordResetServiceInterface defines the interface for the reset token lifecycle
type PasswordResetServiceInterface interface {
	RequestReset(ctx context.Context, email, ipAddress string) error
	ResetPassword(ctx context.Context, email, token, newPassword, ipAddress string) error
	VerifyToken(ctx context.Context, email, token string) bool
}

// AuthHandler handles account and password reset HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	resets   PasswordResetServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, resets PasswordResetServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		resets:   resets,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the request body for a reset link request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for completing a reset
type ResetPasswordRequest struct {
	Token                string `json:"token" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

// VerifyResetTokenRequest represents the request body for a token check
type VerifyResetTokenRequest struct {
	Token string `json:"token" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	resp, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, map[string]any{
		"user":  resp.User,
		"token": resp.Token,
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"user":  resp.User,
		"token": resp.Token,
	})
}

// Logout handles POST /logout. Every token of the caller stops validating.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID, pkghttp.ExtractClientIP(r, h.ipConfig)); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// ForgotPassword handles POST /forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	if err := h.resets.RequestReset(r.Context(), req.Email, pkghttp.ExtractClientIP(r, h.ipConfig)); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "A password reset link has been sent to your email address")
}

// ResetPassword handles POST /reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	err := h.resets.ResetPassword(r.Context(), req.Email, req.Token, req.Password, pkghttp.ExtractClientIP(r, h.ipConfig))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Your password has been reset")
}

// VerifyResetToken handles POST /verify-reset-token. It never consumes the token.
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyResetTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if verr := ValidateRequest(req); verr != nil {
		writeValidation(w, verr)
		return
	}

	valid := h.resets.VerifyToken(r.Context(), req.Email, req.Token)
	message := "Token is valid"
	if !valid {
		message = "Token is invalid or expired"
	}

	pkghttp.WriteSuccess(w, http.StatusOK, map[string]any{
		"valid":   valid,
		"message": message,
	})
}

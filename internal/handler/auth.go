package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/auth"
	"github.com/nahiyan/tasktrail/internal/service"
)

// AuthHandler exposes the account lifecycle over HTTP:
//
//	POST /auth/register
//	POST /auth/login
//	POST /auth/verify-email
//	POST /auth/resend-verification
//	POST /auth/forgot-password
//	POST /auth/reset-password
//	GET  /api/me              (behind RequireAuth)
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,password"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"password" validate:"required,password"`
}

// HandleRegister creates a new account and responds 201 with the account
// summary. The response never contains the password hash or any token.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.authSvc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "account created, check your email for a verification link", account)
}

// HandleLogin authenticates and responds with the session token plus the
// sanitized account.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "login successful", map[string]any{
		"token":   result.Token,
		"account": result.Account,
	})
}

// HandleVerifyEmail consumes a verification token.
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authSvc.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "email verified", nil)
}

// HandleResendVerification responds with the same generic success whether
// or not the email belongs to an account.
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authSvc.ResendVerification(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "if that email needs verification, a new link has been sent", nil)
}

// HandleForgotPassword responds with an identical generic success whether
// or not the email belongs to an account — the two branches must not be
// distinguishable from the response.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authSvc.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "if an account exists for that email, a reset link has been sent", nil)
}

// HandleResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := checkRequest(&req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authSvc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "password updated, you can now log in", nil)
}

// HandleMe returns the authenticated user's sanitized account.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	account, err := h.authSvc.GetAccount(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, "ok", account)
}

// decodeBody decodes a JSON request body, mapping malformed JSON to a 400.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationField("body", "request body must be valid JSON")
	}
	return nil
}

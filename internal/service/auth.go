// Package service contains the business logic layer. Handlers parse HTTP
// and call into here; services enforce the rules and talk to the
// repositories and the mailer. Nothing in this package knows about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/auth"
	"github.com/nahiyan/tasktrail/internal/mailer"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
)

// AuthService implements the account lifecycle: register, verify email,
// login, forgot/reset password.
//
// Notification sends are best-effort with respect to the workflow: a
// failed email is logged and the already-committed state change stands.
// Nothing here retries a send.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	notifier  mailer.Notifier
	logger    *slog.Logger

	verificationTTL time.Duration
	resetTTL        time.Duration
}

// AuthConfig carries the token lifetimes into the service. Zero values
// fall back to the defaults (24h verification, 1h reset).
type AuthConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// NewAuthService wires the auth workflows. Call from the composition root.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	notifier mailer.Notifier,
	logger *slog.Logger,
	cfg AuthConfig,
) *AuthService {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = auth.DefaultVerificationTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = auth.DefaultResetTTL
	}
	return &AuthService{
		users:           users,
		tokens:          tokens,
		passwords:       passwords,
		notifier:        notifier,
		logger:          logger,
		verificationTTL: cfg.VerificationTTL,
		resetTTL:        cfg.ResetTTL,
	}
}

// LoginResult bundles the issued session token with the sanitized account.
type LoginResult struct {
	Token   string
	Account model.AccountSummary
}

// Register creates a new account in the pending-verification state and
// sends the verification email.
//
// The email is lowercased before storage and lookup; format and password
// strength are validated at the handler boundary. A duplicate email
// surfaces as ErrConflict straight from the store's unique constraint.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (model.AccountSummary, error) {
	email = NormalizeEmail(email)

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return model.AccountSummary{}, fmt.Errorf("service/auth: %w", err)
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return model.AccountSummary{}, fmt.Errorf("service/auth: %w", err)
	}
	expires := auth.ExpiryTime(s.verificationTTL)

	user := &model.User{
		Email:                    email,
		DisplayName:              displayName,
		PasswordHash:             hash,
		EmailVerified:            false,
		EmailVerificationToken:   &token,
		EmailVerificationExpires: &expires,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return model.AccountSummary{}, err
		}
		return model.AccountSummary{}, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	// Best-effort: the account exists either way; the user can ask for a
	// resend if the email never arrives.
	if err := s.notifier.SendVerification(user.Email, token, s.verificationTTL); err != nil {
		s.logger.Error("sending verification email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user.Summary(), nil
}

// VerifyEmail consumes a verification token: marks the email verified and
// clears the token pair in one store update, so a second call with the
// same token finds nothing.
//
// An expired token is reported but deliberately left in place; only a new
// registration or resend cycle replaces it.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperror.NotFound("verification token not found")
	}

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/auth: looking up verification token: %w", err)
	}

	if auth.IsExpired(user.EmailVerificationExpires) {
		return apperror.TokenExpired("verification")
	}

	if err := s.users.MarkEmailVerified(ctx, token); err != nil {
		// Zero rows: another request consumed the token between our read
		// and this update. Same outcome as an unknown token.
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/auth: consuming verification token: %w", err)
	}

	s.logger.Info("email verified", slog.String("userID", user.ID))

	if err := s.notifier.SendWelcome(user.Email, user.DisplayName); err != nil {
		s.logger.Error("sending welcome email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ResendVerification rotates the verification token on an unverified
// account and emails the new one. Like ForgotPassword it succeeds from the
// caller's perspective no matter what, so it cannot be used to probe for
// accounts.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("service/auth: looking up account: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	if err := s.users.RotateVerificationToken(ctx, user.ID, token, auth.ExpiryTime(s.verificationTTL)); err != nil {
		return fmt.Errorf("service/auth: rotating verification token: %w", err)
	}

	if err := s.notifier.SendVerification(user.Email, token, s.verificationTTL); err != nil {
		s.logger.Error("sending verification email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// Login checks the credentials and issues a session token. An unknown
// email and a wrong password produce the same ErrUnauthorized so callers
// cannot enumerate accounts; the two cases are distinguished only in the
// server-side log. An unverified account cannot log in regardless of
// credential correctness.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed: unknown email", slog.String("email", email))
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("service/auth: looking up account: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: bad password", slog.String("userID", user.ID))
		return nil, apperror.Unauthorized("invalid email or password")
	}

	if !user.EmailVerified {
		return nil, apperror.Unauthorized("email address is not verified")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session token: %w", err)
	}

	s.logger.Info("login succeeded", slog.String("userID", user.ID))

	return &LoginResult{
		Token:   token,
		Account: user.Summary(),
	}, nil
}

// ForgotPassword stores a reset token and emails it if the account exists,
// and does nothing otherwise. Either way the caller gets nil — the
// response must be byte-identical in both branches.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("service/auth: looking up account: %w", err)
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, token, auth.ExpiryTime(s.resetTTL)); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	s.logger.Info("password reset token issued", slog.String("userID", user.ID))

	if err := s.notifier.SendPasswordReset(user.Email, token, s.resetTTL); err != nil {
		s.logger.Error("sending reset email failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ResetPassword consumes a reset token: writes the new hash and clears the
// token pair in one store update. Expired tokens are reported and, like
// verification tokens, left in place until overwritten by a new
// forgot-password cycle.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperror.NotFound("reset token not found")
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/auth: looking up reset token: %w", err)
	}

	if auth.IsExpired(user.PasswordResetExpires) {
		return apperror.TokenExpired("reset")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: %w", err)
	}

	if err := s.users.ResetPassword(ctx, token, hash); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/auth: consuming reset token: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))

	return nil
}

// GetAccount returns the sanitized account for an authenticated user id.
func (s *AuthService) GetAccount(ctx context.Context, id string) (model.AccountSummary, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.AccountSummary{}, err
		}
		return model.AccountSummary{}, fmt.Errorf("service/auth: fetching account %s: %w", id, err)
	}
	return user.Summary(), nil
}

// NormalizeEmail lowercases and trims an email address. Applied before
// every store lookup and write so case never splits one mailbox into two
// accounts.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

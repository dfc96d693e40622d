// Package repository defines the persistence interfaces the services
// depend on. The sqlite subpackage is the concrete implementation; tests
// substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/nahiyan/tasktrail/internal/model"
)

// ListOptions carries pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the account store.
//
// The three consume methods (MarkEmailVerified, ResetPassword,
// RotateVerificationToken's overwrite) must be atomic conditional updates:
// each performs its effect and clears/replaces the token pair in one
// statement keyed on the token value, and reports ErrNotFound when zero
// rows matched. That single statement is what makes every token
// single-use under concurrent requests.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)

	// MarkEmailVerified sets email_verified and clears the verification
	// token pair, conditional on the token still being present.
	MarkEmailVerified(ctx context.Context, token string) error

	// RotateVerificationToken replaces the verification token pair on an
	// unverified account (resend flow).
	RotateVerificationToken(ctx context.Context, id, token string, expires time.Time) error

	// SetResetToken stores a new password reset token pair.
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error

	// ResetPassword writes the new hash and clears the reset token pair,
	// conditional on the token still being present.
	ResetPassword(ctx context.Context, token, passwordHash string) error
}

// TodoRepository persists todos. All reads and writes are scoped by the
// owning user id; a mismatched owner behaves exactly like a missing row.
type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) error
	GetByID(ctx context.Context, userID, id string) (*model.Todo, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]model.Todo, error)
	Update(ctx context.Context, todo *model.Todo) error
	Delete(ctx context.Context, userID, id string) error
}

// ActivityRepository persists activity log entries.
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	List(ctx context.Context, userID string, opts ListOptions) ([]model.Activity, error)
	Delete(ctx context.Context, userID, id string) error

	// Dates returns the distinct activity dates for a user, newest first.
	// Streaks are computed from this set.
	Dates(ctx context.Context, userID string) ([]time.Time, error)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/nahiyan/tasktrail/internal/apperror"
	"github.com/nahiyan/tasktrail/internal/model"
	"github.com/nahiyan/tasktrail/internal/repository"
)

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, email, display_name, password_hash, email_verified,
	email_verification_token, email_verification_expires,
	password_reset_token, password_reset_expires, created_at, updated_at`

// Create inserts a new account. The caller provides email (already
// lowercased), display name, password hash, and the verification token
// pair; ID and timestamps are filled in here. A duplicate email surfaces
// as apperror.ErrConflict — the UNIQUE constraint is the arbiter, so two
// concurrent registrations for one email cannot both succeed.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, email_verified,
			email_verification_token, email_verification_expires, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.EmailVerified,
		user.EmailVerificationToken,
		user.EmailVerificationExpires,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("an account with this email already exists")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves an account by internal id.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByEmail retrieves an account by (lowercased) email.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// GetByVerificationToken retrieves the account holding the given live
// verification token.
func (db *UserDB) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email_verification_token = ?`, token)
}

// GetByResetToken retrieves the account holding the given live reset token.
func (db *UserDB) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	return db.getUser(ctx, `WHERE password_reset_token = ?`, token)
}

// MarkEmailVerified flips email_verified and clears the verification token
// pair in one conditional statement. Zero rows affected means the token
// was already consumed (or never existed) and maps to ErrNotFound, which
// is what makes the token single-use under concurrent requests.
func (db *UserDB) MarkEmailVerified(ctx context.Context, token string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email_verified = 1,
		     email_verification_token = NULL,
		     email_verification_expires = NULL,
		     updated_at = ?
		 WHERE email_verification_token = ?`,
		time.Now(), token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking email verified: %w", err)
	}
	return requireRowAffected(res, "verification token not found")
}

// RotateVerificationToken replaces the verification token pair on an
// unverified account.
func (db *UserDB) RotateVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email_verification_token = ?,
		     email_verification_expires = ?,
		     updated_at = ?
		 WHERE id = ? AND email_verified = 0`,
		token, expires, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: rotating verification token: %w", err)
	}
	return requireRowAffected(res, "account not found")
}

// SetResetToken stores a new reset token pair, replacing any previous one.
func (db *UserDB) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET password_reset_token = ?,
		     password_reset_expires = ?,
		     updated_at = ?
		 WHERE id = ?`,
		token, expires, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset token: %w", err)
	}
	return requireRowAffected(res, "account not found")
}

// ResetPassword writes the new hash and clears the reset token pair in one
// conditional statement, keyed on the token. Same single-use contract as
// MarkEmailVerified.
func (db *UserDB) ResetPassword(ctx context.Context, token, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = ?,
		     password_reset_token = NULL,
		     password_reset_expires = NULL,
		     updated_at = ?
		 WHERE password_reset_token = ?`,
		passwordHash, time.Now(), token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: resetting password: %w", err)
	}
	return requireRowAffected(res, "reset token not found")
}

func (db *UserDB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u             model.User
		verifyToken   sql.NullString
		verifyExpires sql.NullTime
		resetToken    sql.NullString
		resetExpires  sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg,
	).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.EmailVerified,
		&verifyToken,
		&verifyExpires,
		&resetToken,
		&resetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account not found")
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	if verifyToken.Valid {
		u.EmailVerificationToken = &verifyToken.String
	}
	if verifyExpires.Valid {
		u.EmailVerificationExpires = &verifyExpires.Time
	}
	if resetToken.Valid {
		u.PasswordResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		u.PasswordResetExpires = &resetExpires.Time
	}

	return &u, nil
}

func requireRowAffected(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(notFoundMsg)
	}
	return nil
}

// isUniqueViolation checks for a UNIQUE constraint failure on the given
// column. modernc.org/sqlite reports these as plain errors carrying the
// SQLite message text.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}

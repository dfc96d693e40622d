// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The password is stored as a bcrypt hash and is never serialized — note
// the json:"-" tags. The two token/expiry pairs drive the email-verification
// and password-reset flows:
//
//   - EmailVerificationToken/Expires: set at registration (and on resend),
//     cleared by the same update that marks the email verified.
//   - PasswordResetToken/Expires: set by forgot-password, cleared by the
//     same update that writes the new password hash.
//
// A token field and its expiry field are always both nil or both set; the
// sqlite repository writes them together in a single statement. Token
// columns carry UNIQUE indexes so one token can never match two accounts.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"` // unique, lowercased, immutable after creation
	DisplayName   string `json:"displayName"`
	PasswordHash  string `json:"-"`
	EmailVerified bool   `json:"emailVerified"`

	EmailVerificationToken   *string    `json:"-"`
	EmailVerificationExpires *time.Time `json:"-"`
	PasswordResetToken       *string    `json:"-"`
	PasswordResetExpires     *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountSummary is the subset of a user that is safe to put in an API
// response: no hash, no tokens.
type AccountSummary struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Summary returns the sanitized view of the user.
func (u *User) Summary() AccountSummary {
	return AccountSummary{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

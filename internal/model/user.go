package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is an account holder. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Session is a server-side login session. Only the SHA-256 digest of the
// opaque bearer token is stored; the cleartext token exists once, in the
// login response.
type Session struct {
	TokenDigest string    `db:"token_digest" json:"-"`
	UserID      string    `db:"user_id" json:"user_id"`
	ExpiresAt   time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

const (
	MaxNameLength  = 200
	MaxEmailLength = 320
)

// NormalizeEmail lowercases and trims an email address. All email
// comparisons (login, invites, membership checks) go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the user fields that callers control.
// The password hash is validated by the auth layer, not here.
func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(u.Email) > MaxEmailLength {
		return fmt.Errorf("%w: email exceeds %d characters", ErrValidation, MaxEmailLength)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(u.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLength)
	}
	return nil
}

package models

import (
	"time"
)

// TokenState is the lifecycle state of a password-reset token.
// Consumed tokens have no row, so only Active and Expired are observable.
type TokenState string

const (
	TokenStateActive  TokenState = "active"
	TokenStateExpired TokenState = "expired"
)

// PasswordResetToken is the stored form of a single-use reset token
type PasswordResetToken struct {
	Email     string    `json:"email"`
	TokenHash string    `json:"-"` // Never expose token hash
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpiredAt reports whether the token is no longer usable at now
func (t *PasswordResetToken) IsExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// StateAt returns the token state at now
func (t *PasswordResetToken) StateAt(now time.Time) TokenState {
	if t.IsExpiredAt(now) {
		return TokenStateExpired
	}
	return TokenStateActive
}

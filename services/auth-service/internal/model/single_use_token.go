package model

import (
	"time"
)

// TokenPurpose distinguishes the kinds of single-use tokens.
type TokenPurpose string

const (
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailVerification TokenPurpose = "email_verification"
)

// SingleUseToken is a hashed, time-boxed token consumed on first successful use.
// At most one exists per (UserID, Purpose); issuing a new one replaces the old.
type SingleUseToken struct {
	ID        string       `bson:"_id"`
	UserID    string       `bson:"user_id"`
	Purpose   TokenPurpose `bson:"purpose"`
	TokenHash string       `bson:"token_hash"`
	ExpiresAt time.Time    `bson:"expires_at"`
	CreatedAt time.Time    `bson:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *SingleUseToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

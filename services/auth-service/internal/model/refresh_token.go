package model

import (
	"time"
)

// RefreshToken is a persisted refresh-token session. Only the SHA-256 of the
// signed token is stored; a token is usable while its record exists and has not expired.
type RefreshToken struct {
	ID         string    `bson:"_id"`
	TokenHash  string    `bson:"token_hash"`
	UserID     string    `bson:"user_id"`
	RememberMe bool      `bson:"remember_me"`
	ExpiresAt  time.Time `bson:"expires_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

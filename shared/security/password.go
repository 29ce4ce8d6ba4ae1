// Package security holds the password and opaque-token primitives used by the auth service.
package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor applied to new password hashes.
const DefaultBcryptCost = 12

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

const argon2Prefix = "$argon2"

// ErrPasswordTooLong is returned by HashPassword for passwords over MaxPasswordBytes bytes.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword hashes password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Bcrypt digests are the norm;
// argon2 encoded digests carried over from older accounts are accepted as well.
// A mismatch is (false, nil); a malformed digest is an error.
func VerifyPassword(password, hash string) (bool, error) {
	if strings.HasPrefix(hash, argon2Prefix) {
		ok, err := argon2.VerifyEncoded([]byte(password), []byte(hash))
		if err != nil {
			return false, fmt.Errorf("verify argon2 password: %w", err)
		}
		return ok, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify bcrypt password: %w", err)
	}
}

// NeedsRehash reports whether hash was produced by something other than bcrypt at cost.
func NeedsRehash(hash string, cost int) bool {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if strings.HasPrefix(hash, argon2Prefix) {
		return true
	}

	current, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return current != cost
}

// Package memory provides process-local repositories used by tests and by STORE_DRIVER=memory.
// Every repository guards its data with one mutex, so compound operations are atomic.
package memory

import (
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
)

// Store bundles one instance of every in-memory repository.
type Store struct {
	Users           *UserRepository
	RefreshTokens   *RefreshTokenRepository
	LoginAttempts   *LoginAttemptRepository
	SingleUseTokens *SingleUseTokenRepository
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Users:           NewUserRepository(),
		RefreshTokens:   NewRefreshTokenRepository(),
		LoginAttempts:   NewLoginAttemptRepository(),
		SingleUseTokens: NewSingleUseTokenRepository(),
	}
}

var (
	_ repository.UserRepository           = (*UserRepository)(nil)
	_ repository.RefreshTokenRepository   = (*RefreshTokenRepository)(nil)
	_ repository.LoginAttemptRepository   = (*LoginAttemptRepository)(nil)
	_ repository.SingleUseTokenRepository = (*SingleUseTokenRepository)(nil)
)

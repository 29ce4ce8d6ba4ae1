package usecase

import (
	"context"
	"time"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
)

// Notifier delivers plaintext single-use tokens to users. Delivery is fire-and-forget:
// failures never reach the caller of the operation that produced the token.
type Notifier interface {
	SendPasswordReset(ctx context.Context, user *model.User, token string, expiresIn time.Duration)
	SendEmailVerification(ctx context.Context, user *model.User, token string, expiresIn time.Duration)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey struct{}

// UserIDKey is the context key holding the authenticated user identifier.
var UserIDKey = contextKey{}

var (
	ErrMissingAuthorization = errors.New("missing authorization header")
	ErrInvalidAuthorization = errors.New("invalid authorization header format")
)

// TokenVerifier turns a bearer access token into the user identifier it was issued for.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// UnauthorizedFunc writes the response for a request rejected by NewJWTMiddleware.
type UnauthorizedFunc func(w http.ResponseWriter, r *http.Request, err error)

// NewJWTMiddleware rejects requests without a valid bearer access token and
// stores the token subject under UserIDKey for the downstream handler.
func NewJWTMiddleware(verifier TokenVerifier, unauthorized UnauthorizedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			userID, err := verifier.VerifyAccessToken(token)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the authenticated user identifier, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthorization
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidAuthorization
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrInvalidAuthorization
	}

	return token, nil
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/car-rental-api/shared/middleware"
	"github.com/vasapolrittideah/car-rental-api/shared/validator"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries everything NewRouter wires into the HTTP surface.
type RouterConfig struct {
	AuthUsecase              usecase.AuthUsecase
	PasswordResetUsecase     usecase.PasswordResetUsecase
	EmailVerificationUsecase usecase.EmailVerificationUsecase
	TokenVerifier            middleware.TokenVerifier
	Validator                *validator.Validator
	Logger                   *zerolog.Logger

	// Pinger backs /ready. Nil means always ready.
	Pinger Pinger

	RequestTimeout           time.Duration
	ClientRateLimitPerMinute int
	AllowedOrigins           []string

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only set it when every request arrives through a proxy that overwrites them.
	TrustProxyHeaders bool
}

// NewRouter builds the chi router serving /auth, /health and /ready.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := newAuthHTTPHandler(
		cfg.AuthUsecase,
		cfg.PasswordResetUsecase,
		cfg.EmailVerificationUsecase,
		cfg.Validator,
	)

	r := chi.NewRouter()

	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(requestTimeout(cfg.RequestTimeout))
	}

	r.Get("/health", health)
	r.Get("/ready", ready(cfg.Pinger))

	requireAuth := middleware.NewJWTMiddleware(cfg.TokenVerifier, writeUnauthorized)

	r.Route("/auth", func(r chi.Router) {
		if cfg.ClientRateLimitPerMinute > 0 {
			limiter := middleware.NewClientRateLimiter(cfg.ClientRateLimitPerMinute)
			r.Use(middleware.RateLimit(limiter, writeTooManyRequests))
		}

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/validate-reset-token", h.ValidateResetToken)
		r.Get("/verify-email", h.VerifyEmail)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout-all", h.LogoutAll)
			r.Post("/resend-verification", h.ResendVerification)
			r.Get("/profile", h.Profile)
		})
	})

	return r
}

// requestTimeout bounds the request context. Handlers see the deadline as a
// store failure and answer 503 themselves.
func requestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/car-rental-api/shared/utilities"
	"github.com/vasapolrittideah/car-rental-api/shared/validator"
)

const (
	codeValidationError = "VALIDATION_ERROR"
	codeInvalidRequest  = "INVALID_REQUEST"
	codeUnauthorized    = "UNAUTHORIZED"
	codeTooManyRequests = "TOO_MANY_REQUESTS"
	codeInternalError   = "INTERNAL_ERROR"

	maxBodyBytes = 1 << 20
)

type authHTTPHandler struct {
	authUsecase              usecase.AuthUsecase
	passwordResetUsecase     usecase.PasswordResetUsecase
	emailVerificationUsecase usecase.EmailVerificationUsecase
	validator                *validator.Validator
}

func newAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	emailVerificationUsecase usecase.EmailVerificationUsecase,
	validator *validator.Validator,
) *authHTTPHandler {
	return &authHTTPHandler{
		authUsecase:              authUsecase,
		passwordResetUsecase:     passwordResetUsecase,
		emailVerificationUsecase: emailVerificationUsecase,
		validator:                validator,
	}
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports false when the request must stop.
func (h *authHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		message := "request body must be valid JSON"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		utilities.WriteError(w, r, http.StatusBadRequest, codeInvalidRequest, message, nil)
		return false
	}

	if fields := h.validator.Validate(dst); fields != nil {
		utilities.WriteError(w, r, http.StatusBadRequest, codeValidationError, "request validation failed", fields)
		return false
	}

	return true
}

// writeError maps err onto the response envelope. Errors outside the usecase
// taxonomy are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := usecase.AsError(err)
	if !ok {
		hlog.FromRequest(r).Error().Err(err).Msg("unhandled error")
		utilities.WriteError(w, r, http.StatusInternalServerError, codeInternalError, "something went wrong", nil)
		return
	}

	if e.Status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("code", e.Code).Msg("request failed")
	}

	utilities.WriteError(w, r, e.Status, e.Code, e.Message, nil)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, _ error) {
	utilities.WriteError(w, r, http.StatusUnauthorized, codeUnauthorized, "missing or invalid access token", nil)
}

func writeTooManyRequests(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	utilities.WriteError(w, r, http.StatusTooManyRequests, codeTooManyRequests, "too many requests", nil)
}

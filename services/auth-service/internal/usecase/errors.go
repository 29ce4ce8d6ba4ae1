package usecase

import (
	"errors"
	"net/http"
)

// Error is a failure the auth service reports to its callers. Two errors are
// equal under errors.Is when their codes match, so wrapped causes still compare
// equal to the package sentinels.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid email or password",
		Status:  http.StatusUnauthorized,
	}
	ErrAccountLocked = &Error{
		Code:    "ACCOUNT_LOCKED",
		Message: "account is temporarily locked due to too many failed login attempts",
		Status:  http.StatusUnauthorized,
	}
	ErrAccountDeactivated = &Error{
		Code:    "ACCOUNT_DEACTIVATED",
		Message: "account has been deactivated",
		Status:  http.StatusUnauthorized,
	}
	ErrInvalidToken = &Error{
		Code:    "INVALID_TOKEN",
		Message: "invalid or expired token",
		Status:  http.StatusUnauthorized,
	}
	ErrUserExists = &Error{
		Code:    "USER_EXISTS",
		Message: "user with this email or phone already exists",
		Status:  http.StatusConflict,
	}
	ErrUserNotFound = &Error{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
		Status:  http.StatusNotFound,
	}
	ErrTokenExpired = &Error{
		Code:    "TOKEN_EXPIRED",
		Message: "token has expired",
		Status:  http.StatusBadRequest,
	}
	ErrEmailAlreadyVerified = &Error{
		Code:    "EMAIL_ALREADY_VERIFIED",
		Message: "email is already verified",
		Status:  http.StatusBadRequest,
	}
	ErrPasswordTooLong = &Error{
		Code:    "VALIDATION_ERROR",
		Message: "password must be at most 72 bytes long",
		Status:  http.StatusBadRequest,
	}
	ErrUnavailable = &Error{
		Code:    "SERVICE_UNAVAILABLE",
		Message: "service temporarily unavailable",
		Status:  http.StatusServiceUnavailable,
	}
)

// unavailable wraps a store or infrastructure failure.
func unavailable(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return &Error{
		Code:    ErrUnavailable.Code,
		Message: ErrUnavailable.Message,
		Status:  ErrUnavailable.Status,
		Err:     err,
	}
}

// AsError extracts the *Error in err's chain, reporting false for anything else.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

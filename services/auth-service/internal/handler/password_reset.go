package handler

import (
	"net/http"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/car-rental-api/shared/utilities"
)

// forgotPasswordMessage is returned whether or not the email is registered.
const forgotPasswordMessage = "if an account with that email exists, a password reset link has been sent"

func (h *authHTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: forgotPasswordMessage})
}

func (h *authHTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req payload.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: "password has been reset"})
}

func (h *authHTTPHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	var req payload.ValidateResetTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.passwordResetUsecase.ValidatePasswordResetToken(r.Context(), req.Email, req.Token); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: "token is valid"})
}

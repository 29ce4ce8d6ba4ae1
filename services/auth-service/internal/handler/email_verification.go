package handler

import (
	"net/http"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/car-rental-api/shared/middleware"
	"github.com/vasapolrittideah/car-rental-api/shared/utilities"
)

func (h *authHTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utilities.WriteError(w, r, http.StatusBadRequest, codeValidationError, "request validation failed",
			map[string]string{"token": "token is a required field"})
		return
	}

	if err := h.emailVerificationUsecase.VerifyEmail(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: "email verified"})
}

func (h *authHTTPHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, nil)
		return
	}

	if err := h.emailVerificationUsecase.ResendVerification(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: "verification email sent"})
}

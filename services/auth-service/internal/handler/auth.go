package handler

import (
	"net/http"
	"time"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/payload"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/car-rental-api/shared/middleware"
	"github.com/vasapolrittideah/car-rental-api/shared/utilities"
)

func (h *authHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := usecase.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(payload.DateLayout, *req.DateOfBirth)
		if err != nil {
			utilities.WriteError(w, r, http.StatusBadRequest, codeValidationError, "request validation failed",
				map[string]string{"dateOfBirth": "dateOfBirth must be a YYYY-MM-DD date"})
			return
		}
		params.DateOfBirth = &dob
	}

	result, err := h.authUsecase.Register(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusCreated, payload.NewAuthResponse(result.User, result.Tokens))
}

func (h *authHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.NewAuthResponse(result.User, result.Tokens))
}

func (h *authHTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req payload.RefreshTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	tokens, err := h.authUsecase.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.NewTokensResponse(tokens))
}

func (h *authHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req payload.RefreshTokenRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authUsecase.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: "logged out"})
}

func (h *authHTTPHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, nil)
		return
	}

	if err := h.authUsecase.LogoutAll(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.MessageResponse{Message: "logged out from all devices"})
}

func (h *authHTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, nil)
		return
	}

	user, err := h.authUsecase.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utilities.WriteSuccess(w, r, http.StatusOK, payload.NewUserResponse(user))
}

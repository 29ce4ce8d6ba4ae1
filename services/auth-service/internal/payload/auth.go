package payload

import (
	"time"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/car-rental-api/services/auth-service/pkg/types"
)

// DateLayout is the format of dateOfBirth in requests and responses.
const DateLayout = time.DateOnly

type RegisterRequest struct {
	Email       string  `json:"email"                 validate:"required,email,max=254"`
	Password    string  `json:"password"              validate:"required,min=8,maxbytes=72"`
	FirstName   string  `json:"firstName"             validate:"required,max=100"`
	LastName    string  `json:"lastName"              validate:"required,max=100"`
	Phone       *string `json:"phone,omitempty"       validate:"omitempty,min=6,max=20"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type LoginRequest struct {
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,maxbytes=72"`
}

type ValidateResetTokenRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// UserResponse is the public projection of a user. It never carries the password hash.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone,omitempty"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	IsVerified  bool      `json:"isVerified"`
	DateOfBirth *string   `json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewUserResponse(user *model.User) UserResponse {
	resp := UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Phone:      user.Phone,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Role:       string(user.Role),
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
	if user.DateOfBirth != nil {
		dob := user.DateOfBirth.Format(DateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}

func NewTokensResponse(tokens *authtypes.Tokens) TokensResponse {
	return TokensResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.AccessTokenExpiresIn,
	}
}

func NewAuthResponse(user *model.User, tokens *authtypes.Tokens) AuthResponse {
	return AuthResponse{
		User:         NewUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.AccessTokenExpiresIn,
	}
}

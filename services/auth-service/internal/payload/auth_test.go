package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/model"
	authtypes "github.com/vasapolrittideah/car-rental-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/car-rental-api/shared/validator"
)

func TestNewAuthResponse_OmitsPasswordHash(t *testing.T) {
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	user := &model.User{
		ID:           "user-1",
		Email:        "a@x.com",
		PasswordHash: "$2a$12$secret",
		FirstName:    "A",
		LastName:     "B",
		Role:         model.RoleCustomer,
		IsActive:     true,
		DateOfBirth:  &dob,
	}

	resp := NewAuthResponse(user, &authtypes.Tokens{
		AccessToken:          "access",
		RefreshToken:         "refresh",
		AccessTokenExpiresIn: 3600000,
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "password")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 3600000, decoded["expiresIn"])
	assert.Equal(t, "access", decoded["accessToken"])

	userJSON := decoded["user"].(map[string]any)
	assert.Equal(t, "1990-05-17", userJSON["dateOfBirth"])
	assert.Equal(t, "CUSTOMER", userJSON["role"])
	assert.NotContains(t, userJSON, "phone")
}

func TestRegisterRequest_Validation(t *testing.T) {
	v, err := validator.New()
	require.NoError(t, err)

	badDate := "17/05/1990"
	errs := v.Validate(RegisterRequest{
		Email:       "not-an-email",
		Password:    "short",
		FirstName:   "A",
		DateOfBirth: &badDate,
	})

	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "lastName")
	assert.Contains(t, errs, "dateOfBirth")
	assert.NotContains(t, errs, "firstName")

	goodDate := "1990-05-17"
	assert.Nil(t, v.Validate(RegisterRequest{
		Email:       "a@x.com",
		Password:    "Passw0rd!",
		FirstName:   "A",
		LastName:    "B",
		DateOfBirth: &goodDate,
	}))
}

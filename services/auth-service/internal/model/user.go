package model

import (
	"time"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// User represents a user in the authentication system.
type User struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	Phone        *string    `bson:"phone,omitempty"`
	PasswordHash string     `bson:"password_hash"`
	FirstName    string     `bson:"first_name"`
	LastName     string     `bson:"last_name"`
	Role         Role       `bson:"role"`
	IsActive     bool       `bson:"is_active"`
	IsVerified   bool       `bson:"is_verified"`
	DateOfBirth  *time.Time `bson:"date_of_birth,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

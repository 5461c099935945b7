package model

import (
	"errors"
	"net/mail"
	"time"
)

// User is a platform account. Role is "student" or "donor".
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

const (
	RoleStudent = "student"
	RoleDonor   = "donor"
)

// RegisterRequest represents request for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Validate validates RegisterRequest.
func (r *RegisterRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	switch r.Role {
	case "", RoleStudent, RoleDonor:
	default:
		return errors.New("role must be student or donor")
	}
	return nil
}

// LoginRequest represents request for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents response for POST /auth/login and /auth/register
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

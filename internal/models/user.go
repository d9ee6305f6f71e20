package models

import (
	"github.com/blakitny/storefront/internal/tokens"
	"github.com/blakitny/storefront/pkg/types"
)

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	UserID types.ID    `json:"user_id"`
	Email  string      `json:"email"`
	Tokens tokens.Pair `json:"tokens"`
}

// Profile is the signed-in shopper as reported by /users/me/.
type Profile struct {
	UserID types.ID `json:"user_id"`
	Email  string   `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

package auth

import "github.com/blakitny/storefront/internal/models"

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest captures the sign-up form.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// SessionResponse describes who the storefront session belongs to. Tokens stay server-side.
type SessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *models.Profile `json:"user"`
}

func anonymous() *SessionResponse {
	return &SessionResponse{}
}

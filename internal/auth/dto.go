package auth

import (
	"github.com/angelmondragon/library-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service signup payload. New accounts are students.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LoginResponse contains the tokens and user produced by login or registration.
type LoginResponse struct {
	AccessToken  string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.UserDTO `json:"user"`
}

// TokenPair is the result of a refresh.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

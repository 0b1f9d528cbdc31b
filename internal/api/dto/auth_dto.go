package dto

import "time"

// LoginRequest payload for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

// RegisterRequest payload for POST /api/auth/register. Roles may be omitted.
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=128"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=8,maxbytes=72"`
	Roles    []string `json:"roles" validate:"omitempty,max=16,dive,required,max=64"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// MeResponse describes the bearer of the presented token.
type MeResponse struct {
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// Authenticator is the login and registration core.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.Token, error)
	Register(ctx context.Context, in service.RegisterInput) (*domain.Account, error)
}

// AuthHandler exposes the auth endpoints.
type AuthHandler struct {
	auth      Authenticator
	validator *dto.Validator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authenticator Authenticator, validator *dto.Validator) *AuthHandler {
	return &AuthHandler{auth: authenticator, validator: validator}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Validate(&req); err != nil {
		return err
	}

	token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.TokenResponse{
		AccessToken: token.Value,
		TokenType:   token.Type,
		ExpiresAt:   token.ExpiresAt,
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Validate(&req); err != nil {
		return err
	}

	if _, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	}); err != nil {
		return err
	}
	return c.SendStatus(http.StatusCreated)
}

// Me handles GET /api/auth/me for a verified bearer token.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	resp := dto.MeResponse{Username: principal.Username, Roles: principal.Roles}
	if principal.Claims != nil && principal.Claims.ExpiresAt != nil {
		resp.ExpiresAt = principal.Claims.ExpiresAt.Time.UTC()
	}
	return c.JSON(resp)
}

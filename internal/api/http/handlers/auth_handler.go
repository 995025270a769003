package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/service"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util"
)

// AuthHandler issues operator access tokens.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	token, expiresAt, err := h.auth.Login(req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"access_token": token,
		"expires_at":   expiresAt,
	}})
}

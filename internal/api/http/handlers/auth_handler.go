package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/helpdesk-admin/internal/api/dto"
	"github.com/deskops/helpdesk-admin/internal/auth"
	apperrors "github.com/deskops/helpdesk-admin/pkg/util/errorutil"
)

// AuthHandler issues console operator tokens.
type AuthHandler struct {
	authenticator *auth.OperatorAuthenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authenticator *auth.OperatorAuthenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	op, token, exp, err := h.authenticator.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		Email:       op.Email,
		Role:        string(op.Role),
	}})
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/helpdesk-admin/internal/domain"
	apperrors "github.com/deskops/helpdesk-admin/pkg/util/errorutil"
)

// RequireRole ensures the operator has one of the allowed roles.
func RequireRole(allowed ...domain.OperatorRole) fiber.Handler {
	allowedSet := make(map[domain.OperatorRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

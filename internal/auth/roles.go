package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/domain"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// RequireAgent ensures the caller holds the agent capability. Owners pass.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.User.IsStaff() {
			return apperrors.NewForbidden("agent role required")
		}
		return c.Next()
	}
}

// RequireOwner ensures the caller is the owner.
func RequireOwner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User.Role != domain.RoleOwner {
			return apperrors.NewForbidden("owner role required")
		}
		return c.Next()
	}
}

// RequireAny ensures the caller is authenticated.
func RequireAny() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// RequireAdmin ensures the authenticated principal holds the admin role.
// It must run after AuthMiddleware.Handle.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("not authorized, login again")
		}
		if !principal.IsAdmin() {
			return apperrors.NewForbidden("access denied, admins only")
		}
		return c.Next()
	}
}

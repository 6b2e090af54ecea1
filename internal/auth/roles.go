package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// RequireRole ensures the caller holds one of the allowed roles.
// With no roles listed any authenticated tenant passes.
func RequireRole(allowed ...domain.TenantRole) fiber.Handler {
	allowedSet := make(map[domain.TenantRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		tenant, ok := TenantFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[tenant.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff admits support operators and admins.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.TenantRoleSupport, domain.TenantRoleAdmin)
}

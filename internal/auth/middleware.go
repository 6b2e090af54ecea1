package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/hostdesk/hosting-service/internal/domain"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

const principalKey = "auth_principal"

// TenantLoader resolves the tenant named in a token.
type TenantLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
}

// AuthMiddleware validates bearer tokens and loads the calling tenant.
type AuthMiddleware struct {
	tokens  *TokenManager
	tenants TenantLoader
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, tenants TenantLoader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, tenants: tenants}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	tenant, err := m.tenants.GetByID(c.UserContext(), claims.TenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("tenant not found")
		}
		return apperrors.MapError(err)
	}
	if tenant.Status == domain.TenantStatusSuspended {
		return apperrors.NewForbidden("account suspended")
	}

	c.Locals(principalKey, tenant)
	return c.Next()
}

// TenantFromContext retrieves the authenticated tenant.
func TenantFromContext(c *fiber.Ctx) (*domain.Tenant, bool) {
	tenant, ok := c.Locals(principalKey).(*domain.Tenant)
	return tenant, ok && tenant != nil
}

// WithTenant stores a tenant on the request. Used by tests and internal routes.
func WithTenant(c *fiber.Ctx, tenant *domain.Tenant) {
	c.Locals(principalKey, tenant)
}

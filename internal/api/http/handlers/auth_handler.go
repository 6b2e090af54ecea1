package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/api/dto"
	"github.com/hostdesk/hosting-service/internal/service"
)

// AuthAPI is the account surface the handler needs.
type AuthAPI interface {
	Register(ctx context.Context, name, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
}

// AuthHandler exposes registration and login.
type AuthHandler struct {
	auth AuthAPI
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthAPI) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": authPayload(res)})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": authPayload(res)})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTenantResponse(tenant)})
}

func authPayload(res *service.AuthResult) fiber.Map {
	return fiber.Map{
		"user": dto.NewTenantResponse(res.Tenant),
		"auth": dto.AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt},
	}
}

package dto

import (
	"strings"
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Normalize trims identity fields.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the email.
func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// AuthResponse wraps issued tokens.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TenantResponse is the public view of an account.
type TenantResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Role      domain.TenantRole   `json:"role"`
	Status    domain.TenantStatus `json:"status"`
	PlanID    *string             `json:"hosting_plan_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewTenantResponse maps a tenant.
func NewTenantResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Email:     t.Email,
		Role:      t.Role,
		Status:    t.Status,
		PlanID:    t.PlanID,
		CreatedAt: t.CreatedAt,
	}
}

package domain

import "time"

// TenantRole separates customers from support operators.
type TenantRole string

const (
	TenantRoleCustomer TenantRole = "customer"
	TenantRoleSupport  TenantRole = "support"
	TenantRoleAdmin    TenantRole = "admin"
)

// TenantStatus represents lifecycle states for an account.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant is an account holder. It owns domains and tickets and references at most one plan.
type Tenant struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         TenantRole
	Status       TenantStatus
	PlanID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the tenant may work the support queue.
func (t *Tenant) IsStaff() bool {
	return t != nil && (t.Role == TenantRoleSupport || t.Role == TenantRoleAdmin)
}

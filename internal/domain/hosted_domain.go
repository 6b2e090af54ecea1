package domain

import "time"

// DomainStatus enumerates lifecycle states of a hosted domain.
type DomainStatus string

const (
	DomainStatusPending   DomainStatus = "pending"
	DomainStatusActive    DomainStatus = "active"
	DomainStatusSuspended DomainStatus = "suspended"
	DomainStatusExpired   DomainStatus = "expired"
)

// Valid reports whether s is a known status.
func (s DomainStatus) Valid() bool {
	switch s {
	case DomainStatusPending, DomainStatusActive, DomainStatusSuspended, DomainStatusExpired:
		return true
	}
	return false
}

// Domain is a hostname registered by a tenant. It is governed by the tenant's current plan;
// usage figures are supplied externally and never stored here.
type Domain struct {
	ID          string
	TenantID    string
	Name        string
	Status      DomainStatus
	Nameservers []string
	AutoRenew   bool
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

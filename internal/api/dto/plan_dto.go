package dto

import (
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/service"
)

// PlanResponse describes a plan and its quotas.
type PlanResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	DomainLimit    int        `json:"domain_limit"`
	StorageLimit   int64      `json:"storage_limit"`
	BandwidthLimit int64      `json:"bandwidth_limit"`
	DatabaseLimit  int64      `json:"database_limit"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// PlanStatusResponse is a plan with lifecycle facts.
type PlanStatusResponse struct {
	PlanResponse
	IsExpired       bool `json:"is_expired"`
	DaysUntilExpiry int  `json:"days_until_expiry"`
}

// NewPlanResponse maps a plan.
func NewPlanResponse(p *domain.Plan) PlanResponse {
	return PlanResponse{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		DomainLimit:    p.DomainLimit,
		StorageLimit:   p.StorageLimit,
		BandwidthLimit: p.BandwidthLimit,
		DatabaseLimit:  p.DatabaseLimit,
		IsActive:       p.IsActive,
		ExpiresAt:      p.ExpiresAt,
	}
}

// NewPlanStatusResponse maps a plan status.
func NewPlanStatusResponse(s *service.PlanStatus) PlanStatusResponse {
	return PlanStatusResponse{
		PlanResponse:    NewPlanResponse(s.Plan),
		IsExpired:       s.IsExpired,
		DaysUntilExpiry: s.DaysUntilExpiry,
	}
}

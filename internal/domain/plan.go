package domain

import "time"

// PlanLimits are the numeric quotas attached to a plan. Byte limits are inclusive ceilings.
type PlanLimits struct {
	DomainLimit    int
	StorageLimit   int64
	BandwidthLimit int64
	DatabaseLimit  int64
}

// Plan is a hosting subscription tier.
type Plan struct {
	ID          string
	Name        string
	Slug        string
	Description string
	PlanLimits
	IsActive  bool
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Limits returns the quota portion of the plan.
func (p *Plan) Limits() PlanLimits {
	if p == nil {
		return PlanLimits{}
	}
	return p.PlanLimits
}

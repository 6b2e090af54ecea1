package dto

import (
	"strings"
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/entitlement"
	"github.com/hostdesk/hosting-service/internal/service"
)

// CreateDomainRequest payload.
type CreateDomainRequest struct {
	Name        string     `json:"name" validate:"required,max=253,domain_name"`
	Nameservers []string   `json:"nameservers" validate:"omitempty,min=2,max=4,dive,domain_name"`
	AutoRenew   bool       `json:"auto_renew"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Normalize lowercases host names.
func (r *CreateDomainRequest) Normalize() {
	r.Name = strings.ToLower(strings.TrimSpace(r.Name))
	r.Nameservers = normalizeHosts(r.Nameservers)
}

// UpdateDomainRequest payload. Absent fields are left unchanged.
type UpdateDomainRequest struct {
	Status      *string    `json:"status" validate:"omitempty,domain_status"`
	Nameservers []string   `json:"nameservers" validate:"omitempty,min=2,max=4,dive,domain_name"`
	AutoRenew   *bool      `json:"auto_renew"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Normalize lowercases host names.
func (r *UpdateDomainRequest) Normalize() {
	trimPtr(r.Status)
	r.Nameservers = normalizeHosts(r.Nameservers)
}

// Input converts the request for the domain service.
func (r *UpdateDomainRequest) Input() service.DomainUpdateInput {
	input := service.DomainUpdateInput{
		Nameservers: r.Nameservers,
		AutoRenew:   r.AutoRenew,
		ExpiresAt:   r.ExpiresAt,
	}
	if r.Status != nil {
		status := domain.DomainStatus(*r.Status)
		input.Status = &status
	}
	return input
}

// RecordUsageRequest carries a usage report in bytes.
type RecordUsageRequest struct {
	Storage     int64      `json:"storage" validate:"gte=0"`
	Bandwidth   int64      `json:"bandwidth" validate:"gte=0"`
	Database    int64      `json:"database" validate:"gte=0"`
	CollectedAt *time.Time `json:"collected_at"`
}

// Snapshot converts the request.
func (r *RecordUsageRequest) Snapshot() domain.UsageSnapshot {
	snap := domain.UsageSnapshot{Storage: r.Storage, Bandwidth: r.Bandwidth, Database: r.Database}
	if r.CollectedAt != nil {
		snap.CollectedAt = *r.CollectedAt
	}
	return snap
}

// DomainResponse describes a hosted domain.
type DomainResponse struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Status          domain.DomainStatus `json:"status"`
	Nameservers     []string            `json:"nameservers"`
	AutoRenew       bool                `json:"auto_renew"`
	ExpiresAt       *time.Time          `json:"expires_at"`
	IsExpired       bool                `json:"is_expired"`
	DaysUntilExpiry int                 `json:"days_until_expiry"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NewDomainResponse maps a domain view.
func NewDomainResponse(v *service.DomainView) DomainResponse {
	d := v.Domain
	ns := d.Nameservers
	if ns == nil {
		ns = []string{}
	}
	return DomainResponse{
		ID:              d.ID,
		Name:            d.Name,
		Status:          d.Status,
		Nameservers:     ns,
		AutoRenew:       d.AutoRenew,
		ExpiresAt:       d.ExpiresAt,
		IsExpired:       v.IsExpired,
		DaysUntilExpiry: v.DaysUntilExpiry,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// NewDomainResponses maps a list of views.
func NewDomainResponses(views []service.DomainView) []DomainResponse {
	out := make([]DomainResponse, 0, len(views))
	for i := range views {
		out = append(out, NewDomainResponse(&views[i]))
	}
	return out
}

// UsageSnapshotResponse is a usage report in bytes.
type UsageSnapshotResponse struct {
	Storage     int64     `json:"storage"`
	Bandwidth   int64     `json:"bandwidth"`
	Database    int64     `json:"database"`
	CollectedAt time.Time `json:"collected_at"`
}

// LimitsResponse lists plan quotas.
type LimitsResponse struct {
	DomainLimit    int   `json:"domain_limit"`
	StorageLimit   int64 `json:"storage_limit"`
	BandwidthLimit int64 `json:"bandwidth_limit"`
	DatabaseLimit  int64 `json:"database_limit"`
}

// VerdictResponse is the usage evaluation outcome.
type VerdictResponse struct {
	Allowed bool               `json:"allowed"`
	Reason  entitlement.Reason `json:"reason,omitempty"`
}

// UsageReportResponse pairs a snapshot with the plan verdict.
type UsageReportResponse struct {
	DomainID string                 `json:"domain_id"`
	Usage    *UsageSnapshotResponse `json:"usage"`
	Limits   *LimitsResponse        `json:"limits"`
	Verdict  *VerdictResponse       `json:"verdict"`
}

// DashboardResponse is the tenant-wide usage summary.
type DashboardResponse struct {
	UserMetrics      UsageSnapshotResponse `json:"user_metrics"`
	DomainsCount     int                   `json:"domains_count"`
	DomainsReporting int                   `json:"domains_reporting"`
	Limits           *LimitsResponse       `json:"limits"`
	Verdict          *VerdictResponse      `json:"verdict"`
}

// NewDashboardResponse maps a dashboard.
func NewDashboardResponse(d *service.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		UserMetrics:      *NewUsageSnapshotResponse(&d.Usage),
		DomainsCount:     d.DomainsCount,
		DomainsReporting: d.DomainsReporting,
		Limits:           newLimitsResponse(d.Limits),
	}
	if d.Verdict != nil {
		resp.Verdict = &VerdictResponse{Allowed: d.Verdict.Allowed, Reason: d.Verdict.Reason}
	}
	return resp
}

// NewUsageSnapshotResponse maps a snapshot.
func NewUsageSnapshotResponse(u *domain.UsageSnapshot) *UsageSnapshotResponse {
	if u == nil {
		return nil
	}
	return &UsageSnapshotResponse{Storage: u.Storage, Bandwidth: u.Bandwidth, Database: u.Database, CollectedAt: u.CollectedAt}
}

// NewUsageReportResponse maps a usage report.
func NewUsageReportResponse(r *service.UsageReport) UsageReportResponse {
	resp := UsageReportResponse{DomainID: r.DomainID, Usage: NewUsageSnapshotResponse(r.Usage)}
	resp.Limits = newLimitsResponse(r.Limits)
	if r.Verdict != nil {
		resp.Verdict = &VerdictResponse{Allowed: r.Verdict.Allowed, Reason: r.Verdict.Reason}
	}
	return resp
}

func newLimitsResponse(l *domain.PlanLimits) *LimitsResponse {
	if l == nil {
		return nil
	}
	return &LimitsResponse{
		DomainLimit:    l.DomainLimit,
		StorageLimit:   l.StorageLimit,
		BandwidthLimit: l.BandwidthLimit,
		DatabaseLimit:  l.DatabaseLimit,
	}
}

func normalizeHosts(hosts []string) []string {
	if hosts == nil {
		return nil
	}
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, strings.ToLower(strings.TrimSpace(h)))
	}
	return out
}

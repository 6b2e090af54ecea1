package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/entitlement"
	"github.com/hostdesk/hosting-service/internal/events"
	"github.com/hostdesk/hosting-service/internal/observability"
	"github.com/hostdesk/hosting-service/internal/persistence"
	"github.com/hostdesk/hosting-service/internal/repository"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

// DomainService runs domain workflows through the entitlement gate.
type DomainService struct {
	domains    repository.DomainRepository
	plans      repository.PlanRepository
	usage      persistence.UsageStore
	locker     persistence.Locker
	gate       *entitlement.Gate
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// DomainDependencies bundles collaborators for domain service.
type DomainDependencies struct {
	DomainRepo repository.DomainRepository
	PlanRepo   repository.PlanRepository
	UsageStore persistence.UsageStore
	Locker     persistence.Locker
	Gate       *entitlement.Gate
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        Clock
}

// DomainCreateInput describes a new domain.
type DomainCreateInput struct {
	Name        string
	Nameservers []string
	AutoRenew   bool
	ExpiresAt   *time.Time
}

// DomainUpdateInput carries optional changes to a domain.
type DomainUpdateInput struct {
	Status      *domain.DomainStatus
	Nameservers []string
	AutoRenew   *bool
	ExpiresAt   *time.Time
}

// DomainView is a domain annotated with expiry facts.
type DomainView struct {
	Domain          *domain.Domain
	IsExpired       bool
	DaysUntilExpiry int
}

// UsageReport is the latest usage snapshot of a domain judged against the tenant's plan.
// Verdict is nil when either the snapshot or the plan is missing.
type UsageReport struct {
	DomainID string
	Usage    *domain.UsageSnapshot
	Limits   *domain.PlanLimits
	Verdict  *entitlement.Verdict
}

// Dashboard sums the latest usage of every domain the tenant owns. Domains
// without a snapshot count towards DomainsCount only.
type Dashboard struct {
	DomainsCount     int
	DomainsReporting int
	Usage            domain.UsageSnapshot
	Limits           *domain.PlanLimits
	Verdict          *entitlement.Verdict
}

const dashboardPageSize = 100

// NewDomainService constructs the service.
func NewDomainService(deps DomainDependencies) *DomainService {
	gate := deps.Gate
	if gate == nil {
		gate = entitlement.NewGate()
	}
	locker := deps.Locker
	if locker == nil {
		locker = persistence.NewLocalLocker()
	}
	usage := deps.UsageStore
	if usage == nil {
		usage = persistence.NewMemoryUsageStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainService{
		domains:    deps.DomainRepo,
		plans:      deps.PlanRepo,
		usage:      usage,
		locker:     locker,
		gate:       gate,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clockOrDefault(deps.Now),
	}
}

// ListDomains returns the tenant's domains with their expiry facts.
func (s *DomainService) ListDomains(ctx context.Context, tenant *domain.Tenant, limit, offset int) ([]DomainView, error) {
	domains, err := s.domains.ListByTenant(ctx, tenant.ID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]DomainView, 0, len(domains))
	for i := range domains {
		views = append(views, *s.view(&domains[i]))
	}
	return views, nil
}

// GetDomain fetches a domain the caller may see.
func (s *DomainService) GetDomain(ctx context.Context, tenant *domain.Tenant, domainID string) (*DomainView, error) {
	d, err := s.loadOwned(ctx, tenant, domainID)
	if err != nil {
		return nil, err
	}
	return s.view(d), nil
}

// CreateDomain registers a domain when the tenant's plan allows another one.
// Counting, authorizing and inserting happen under a per-tenant lock so two
// concurrent requests cannot both take the last slot.
func (s *DomainService) CreateDomain(ctx context.Context, tenant *domain.Tenant, input DomainCreateInput) (*DomainView, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))

	release, err := s.lockTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	exists, err := s.domains.ExistsByName(ctx, name)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if exists {
		return nil, apperrors.NewConflict("domain already registered", map[string]any{"name": name})
	}

	count, err := s.domains.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	plan, err := loadPlan(ctx, s.plans, tenant)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.authorize(ctx, tenant, entitlement.CreateDomain(), entitlement.TenantSnapshot{
		DomainCount: count,
		Plan:        plan,
	}); err != nil {
		return nil, err
	}

	d := &domain.Domain{
		TenantID:    tenant.ID,
		Name:        name,
		Status:      domain.DomainStatusPending,
		Nameservers: input.Nameservers,
		AutoRenew:   input.AutoRenew,
		ExpiresAt:   input.ExpiresAt,
	}
	if err := s.domains.Create(ctx, d); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventDomainCreated,
		SubjectID: d.ID,
		Actor:     tenantActor(tenant),
		Payload:   events.DomainCreatedPayload{TenantID: tenant.ID, Name: d.Name},
	})
	return s.view(d), nil
}

// UpdateDomain applies changes after the gate has checked plan, usage and expiry.
func (s *DomainService) UpdateDomain(ctx context.Context, tenant *domain.Tenant, domainID string, input DomainUpdateInput) (*DomainView, error) {
	d, err := s.loadOwned(ctx, tenant, domainID)
	if err != nil {
		return nil, err
	}

	count, err := s.domains.CountByTenant(ctx, d.TenantID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	plan, err := loadPlan(ctx, s.plans, tenant)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	usage, err := s.usage.Snapshot(ctx, d.ID)
	if err != nil {
		// Usage is advisory; an unreachable store skips the resource check.
		s.logger.Warn("usage snapshot unavailable", zap.String("domain_id", d.ID), zap.Error(err))
		usage = nil
	}
	if err := s.authorize(ctx, tenant, entitlement.MutateDomain(d.ID), entitlement.TenantSnapshot{
		DomainCount: count,
		Plan:        plan,
		Usage:       usage,
	}); err != nil {
		return nil, err
	}

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid domain status", map[string]any{"status": *input.Status})
		}
		d.Status = *input.Status
	}
	if input.Nameservers != nil {
		d.Nameservers = input.Nameservers
	}
	if input.AutoRenew != nil {
		d.AutoRenew = *input.AutoRenew
	}
	if input.ExpiresAt != nil {
		d.ExpiresAt = input.ExpiresAt
	}
	if err := s.domains.Update(ctx, d); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.view(d), nil
}

// DeleteDomain removes a domain and its usage snapshot. Deletion is never gated.
func (s *DomainService) DeleteDomain(ctx context.Context, tenant *domain.Tenant, domainID string) error {
	d, err := s.loadOwned(ctx, tenant, domainID)
	if err != nil {
		return err
	}
	if err := s.domains.Delete(ctx, d.ID); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.usage.Forget(ctx, d.ID); err != nil {
		s.logger.Warn("usage snapshot not removed", zap.String("domain_id", d.ID), zap.Error(err))
	}
	return nil
}

// ListExpiring returns the tenant's domains expiring within the next days days.
func (s *DomainService) ListExpiring(ctx context.Context, tenant *domain.Tenant, days int) ([]DomainView, error) {
	if days < 0 {
		return nil, apperrors.NewValidationError("days must not be negative", map[string]any{"days": days})
	}
	now := s.now()
	domains, err := s.domains.ListExpiringBetween(ctx, tenant.ID, now, now.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	views := make([]DomainView, 0, len(domains))
	for i := range domains {
		if !entitlement.ExpiringWithin(domains[i].ExpiresAt, now, days) {
			continue
		}
		views = append(views, *s.view(&domains[i]))
	}
	return views, nil
}

// RecordUsage stores a usage snapshot reported for a domain.
func (s *DomainService) RecordUsage(ctx context.Context, domainID string, usage domain.UsageSnapshot) (*domain.UsageSnapshot, error) {
	if err := entitlement.ValidateUsage(usage); err != nil {
		return nil, apperrors.NewInvalidInput(err)
	}
	if _, err := s.domains.GetByID(ctx, domainID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("domain", map[string]any{"domain_id": domainID})
		}
		return nil, apperrors.MapError(err)
	}
	if usage.CollectedAt.IsZero() {
		usage.CollectedAt = s.now().UTC()
	}
	if err := s.usage.Record(ctx, domainID, usage); err != nil {
		return nil, apperrors.MapError(err)
	}
	return &usage, nil
}

// Usage reports the domain's latest snapshot against the tenant's plan limits.
func (s *DomainService) Usage(ctx context.Context, tenant *domain.Tenant, domainID string) (*UsageReport, error) {
	d, err := s.loadOwned(ctx, tenant, domainID)
	if err != nil {
		return nil, err
	}
	report := &UsageReport{DomainID: d.ID}
	snapshot, err := s.usage.Snapshot(ctx, d.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	report.Usage = snapshot

	plan, err := loadPlan(ctx, s.plans, tenant)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if plan == nil {
		return report, nil
	}
	limits := plan.Limits()
	report.Limits = &limits
	if snapshot == nil {
		return report, nil
	}
	verdict, err := entitlement.EvaluateUsage(*snapshot, limits)
	if err != nil {
		return nil, apperrors.NewInvalidInput(err)
	}
	report.Verdict = &verdict
	return report, nil
}

// Dashboard reports aggregate usage across the tenant's domains, judged against
// the plan limits when at least one domain has reported.
func (s *DomainService) Dashboard(ctx context.Context, tenant *domain.Tenant) (*Dashboard, error) {
	board := &Dashboard{}
	for offset := 0; ; offset += dashboardPageSize {
		page, err := s.domains.ListByTenant(ctx, tenant.ID, dashboardPageSize, offset)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for i := range page {
			snapshot, err := s.usage.Snapshot(ctx, page[i].ID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			board.DomainsCount++
			if snapshot == nil {
				continue
			}
			board.DomainsReporting++
			board.Usage.Storage += snapshot.Storage
			board.Usage.Bandwidth += snapshot.Bandwidth
			board.Usage.Database += snapshot.Database
			if snapshot.CollectedAt.After(board.Usage.CollectedAt) {
				board.Usage.CollectedAt = snapshot.CollectedAt
			}
		}
		if len(page) < dashboardPageSize {
			break
		}
	}

	plan, err := loadPlan(ctx, s.plans, tenant)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if plan == nil {
		return board, nil
	}
	limits := plan.Limits()
	board.Limits = &limits
	if board.DomainsReporting == 0 {
		return board, nil
	}
	verdict, err := entitlement.EvaluateUsage(board.Usage, limits)
	if err != nil {
		return nil, apperrors.NewInvalidInput(err)
	}
	board.Verdict = &verdict
	return board, nil
}

func (s *DomainService) authorize(ctx context.Context, tenant *domain.Tenant, action entitlement.ActionRequest, snapshot entitlement.TenantSnapshot) error {
	decision, err := s.gate.Authorize(action, snapshot, s.now())
	if err != nil {
		return apperrors.NewInvalidInput(err)
	}
	if decision.Allowed() {
		s.metrics.RecordEntitlement(string(action.Kind), "allowed")
		return nil
	}
	denial := decision.Denial
	s.metrics.RecordEntitlement(string(action.Kind), string(denial.Code))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventEntitlementDenied,
		SubjectID: tenant.ID,
		Actor:     tenantActor(tenant),
		Payload: events.EntitlementDeniedPayload{
			TenantID: tenant.ID,
			Action:   string(action.Kind),
			Code:     string(denial.Code),
			Detail:   denial.Detail,
		},
	})
	return apperrors.NewPolicyDenied(denial)
}

func (s *DomainService) lockTenant(ctx context.Context, tenantID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, fmt.Sprintf("tenant:%s:domains", tenantID))
	if err != nil {
		if errors.Is(err, persistence.ErrLockTimeout) {
			return nil, apperrors.NewConflict("another domain operation is in progress, retry", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return release, nil
}

func (s *DomainService) loadOwned(ctx context.Context, tenant *domain.Tenant, domainID string) (*domain.Domain, error) {
	d, err := s.domains.GetByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("domain", map[string]any{"domain_id": domainID})
		}
		return nil, apperrors.MapError(err)
	}
	if d.TenantID != tenant.ID {
		return nil, apperrors.NewNotFound("domain", map[string]any{"domain_id": domainID})
	}
	return d, nil
}

func (s *DomainService) view(d *domain.Domain) *DomainView {
	now := s.now()
	return &DomainView{
		Domain:          d,
		IsExpired:       entitlement.DomainExpired(d, now),
		DaysUntilExpiry: entitlement.DaysUntilExpiry(d.ExpiresAt, now),
	}
}

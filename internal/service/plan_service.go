package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/entitlement"
	"github.com/hostdesk/hosting-service/internal/repository"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

// PlanService exposes the plan catalog and tenant subscriptions.
type PlanService struct {
	plans   repository.PlanRepository
	tenants repository.TenantRepository
	now     Clock
}

// PlanDependencies bundles repositories for plan service.
type PlanDependencies struct {
	PlanRepo   repository.PlanRepository
	TenantRepo repository.TenantRepository
	Now        Clock
}

// PlanStatus is a plan annotated with lifecycle facts at the time of the call.
type PlanStatus struct {
	Plan            *domain.Plan
	IsExpired       bool
	DaysUntilExpiry int
}

// NewPlanService constructs the service.
func NewPlanService(deps PlanDependencies) *PlanService {
	return &PlanService{
		plans:   deps.PlanRepo,
		tenants: deps.TenantRepo,
		now:     clockOrDefault(deps.Now),
	}
}

// ListPlans returns the active catalog.
func (s *PlanService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return plans, nil
}

// Subscribe moves the tenant onto the given plan.
func (s *PlanService) Subscribe(ctx context.Context, tenant *domain.Tenant, planID string) (*PlanStatus, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("hosting plan", map[string]any{"plan_id": planID})
		}
		return nil, apperrors.MapError(err)
	}
	if !plan.IsActive {
		return nil, apperrors.NewValidationError("hosting plan is not available", map[string]any{"plan_id": planID})
	}
	tenant.PlanID = &plan.ID
	if err := s.tenants.Update(ctx, tenant); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.status(plan), nil
}

// Current returns the tenant's plan with expiry information.
func (s *PlanService) Current(ctx context.Context, tenant *domain.Tenant) (*PlanStatus, error) {
	plan, err := loadPlan(ctx, s.plans, tenant)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if plan == nil {
		return nil, apperrors.NewNotFound("hosting plan", nil)
	}
	return s.status(plan), nil
}

func (s *PlanService) status(plan *domain.Plan) *PlanStatus {
	now := s.now()
	return &PlanStatus{
		Plan:            plan,
		IsExpired:       entitlement.PlanExpired(plan, now),
		DaysUntilExpiry: entitlement.DaysUntilExpiry(plan.ExpiresAt, now),
	}
}

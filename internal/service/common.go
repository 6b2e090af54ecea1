package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/events"
	"github.com/hostdesk/hosting-service/internal/repository"
)

// Clock returns the current instant. Services take one so policy decisions can be replayed.
type Clock func() time.Time

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func tenantActor(tenant *domain.Tenant) events.Actor {
	if tenant == nil {
		return events.SystemActor()
	}
	actorType := domain.ActorTypeTenant
	if tenant.IsStaff() {
		actorType = domain.ActorTypeStaff
	}
	id := tenant.ID
	return events.Actor{Type: actorType, TenantID: &id}
}

// loadPlan resolves the tenant's current plan. A dangling reference counts as no plan.
func loadPlan(ctx context.Context, plans repository.PlanRepository, tenant *domain.Tenant) (*domain.Plan, error) {
	if tenant == nil || tenant.PlanID == nil {
		return nil, nil
	}
	plan, err := plans.GetByID(ctx, *tenant.PlanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}

package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hostdesk/hosting-service/internal/auth"
	"github.com/hostdesk/hosting-service/internal/config"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/events"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

func newAuthService(store *memStore) *AuthService {
	var cfg config.Config
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 15
	cfg.Auth.BcryptCost = 4
	return NewAuthService(cfg, AuthDependencies{TenantRepo: tenantRepo{store}})
}

func TestRegisterAndLogin(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, " Ada ", " Ada@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", res.Tenant.Email)
	assert.Equal(t, domain.TenantRoleCustomer, res.Tenant.Role)
	assert.NotEqual(t, "s3cret-pass", res.Tenant.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Tenant.ID, claims.TenantID)

	_, err = svc.Register(ctx, "Ada", "ada@example.com", "another-pass")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.ToDomainError(err).HTTPStatus)

	_, err = svc.Login(ctx, "ADA@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)

	_, err = svc.Login(ctx, "nobody@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
}

func TestLoginUpgradesPasswordCost(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	res, err := newAuthService(store).Register(ctx, "Cy", "cy@example.com", "password1")
	require.NoError(t, err)
	oldHash := res.Tenant.PasswordHash

	var cfg config.Config
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = 5
	upgraded := NewAuthService(cfg, AuthDependencies{TenantRepo: tenantRepo{store}})
	_, err = upgraded.Login(ctx, "cy@example.com", "password1")
	require.NoError(t, err)

	stored, err := tenantRepo{store}.GetByID(ctx, res.Tenant.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, stored.PasswordHash)
	assert.False(t, auth.NewPasswordHasher(5).NeedsRehash(stored.PasswordHash))
}

func TestLoginSuspended(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(store)
	ctx := context.Background()
	res, err := svc.Register(ctx, "Bob", "bob@example.com", "password1")
	require.NoError(t, err)
	res.Tenant.Status = domain.TenantStatusSuspended
	require.NoError(t, tenantRepo{store}.Update(ctx, res.Tenant))

	_, err = svc.Login(ctx, "bob@example.com", "password1")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperrors.ToDomainError(err).HTTPStatus)
}

func TestPlanSubscribeAndCurrent(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	expires := testNow.Add(10*24*time.Hour + time.Hour)
	require.NoError(t, planRepo{store}.Create(ctx, &domain.Plan{ID: "pro", Name: "Pro", IsActive: true, ExpiresAt: &expires}))
	require.NoError(t, planRepo{store}.Create(ctx, &domain.Plan{ID: "legacy", Name: "Legacy", IsActive: false}))
	tenant := &domain.Tenant{ID: "t1"}
	require.NoError(t, tenantRepo{store}.Create(ctx, tenant))

	svc := NewPlanService(PlanDependencies{PlanRepo: planRepo{store}, TenantRepo: tenantRepo{store}, Now: fixedClock()})

	plans, err := svc.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "pro", plans[0].ID)

	_, err = svc.Current(ctx, tenant)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	_, err = svc.Subscribe(ctx, tenant, "legacy")
	assert.Error(t, err)
	_, err = svc.Subscribe(ctx, tenant, "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	status, err := svc.Subscribe(ctx, tenant, "pro")
	require.NoError(t, err)
	assert.False(t, status.IsExpired)
	assert.Equal(t, 10, status.DaysUntilExpiry)

	stored, err := tenantRepo{store}.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, stored.PlanID)
	assert.Equal(t, "pro", *stored.PlanID)

	current, err := svc.Current(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "Pro", current.Plan.Name)
}

func TestAuditServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	tenantID := "t1"
	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:      events.EventDomainCreated,
		SubjectID: "d1",
		Actor:     events.Actor{Type: domain.ActorTypeTenant, TenantID: &tenantID},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:      events.EventEntitlementDenied,
		SubjectID: tenantID,
		Actor:     events.SystemActor(),
	}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "domain_created", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "t1", entries[0].ContextMap()["actor_id"])
	assert.Equal(t, "entitlement_denied", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

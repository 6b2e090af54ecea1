package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hostdesk/hosting-service/internal/auth"
	"github.com/hostdesk/hosting-service/internal/config"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/repository"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	tenants  repository.TenantRepository
	tokenMgr *auth.TokenManager
	hasher   auth.PasswordHasher
	logger   *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	TenantRepo repository.TenantRepository
	Logger     *zap.Logger
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Tenant    *domain.Tenant
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tenants:  deps.TenantRepo,
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		hasher:   auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		logger:   logger.Named("auth"),
	}
}

// Register creates a customer account.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if _, err := s.tenants.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	tenant := &domain.Tenant{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.TenantRoleCustomer,
		Status:       domain.TenantStatusActive,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.issue(tenant)
}

// Login authenticates a tenant by email and password. Hashes made at an older
// bcrypt cost are upgraded on success.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	tenant, err := s.tenants.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.hasher.Verify(tenant.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if tenant.Status == domain.TenantStatusSuspended {
		return nil, apperrors.NewForbidden("account suspended")
	}
	if s.hasher.NeedsRehash(tenant.PasswordHash) {
		s.rehash(ctx, tenant, password)
	}
	return s.issue(tenant)
}

func (s *AuthService) rehash(ctx context.Context, tenant *domain.Tenant, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		tenant.PasswordHash = hash
		err = s.tenants.Update(ctx, tenant)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("tenant_id", tenant.ID), zap.Error(err))
	}
}

func (s *AuthService) issue(tenant *domain.Tenant) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(tenant.ID, tenant.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Tenant: tenant, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

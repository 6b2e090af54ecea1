package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// TenantRepository defines persistence access for account holders.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	Update(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByEmail(ctx context.Context, email string) (*domain.Tenant, error)
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository returns a Postgres-backed implementation.
func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, status, hosting_plan_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		tenant.Name,
		tenant.Email,
		tenant.PasswordHash,
		tenant.Role,
		tenant.Status,
		tenant.PlanID,
	).Scan(&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt)
}

func (r *tenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4, status=$5, hosting_plan_id=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		tenant.Name,
		tenant.Email,
		tenant.PasswordHash,
		tenant.Role,
		tenant.Status,
		tenant.PlanID,
		tenant.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, hosting_plan_id, created_at, updated_at
        FROM users WHERE id=$1`
	return scanTenant(r.pool.QueryRow(ctx, query, id))
}

func (r *tenantRepository) GetByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	const query = `
        SELECT id, name, email, password_hash, role, status, hosting_plan_id, created_at, updated_at
        FROM users WHERE email=$1`
	return scanTenant(r.pool.QueryRow(ctx, query, email))
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Email,
		&tenant.PasswordHash,
		&tenant.Role,
		&tenant.Status,
		&tenant.PlanID,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tenant, nil
}

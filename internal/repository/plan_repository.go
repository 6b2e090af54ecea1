package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// PlanRepository provides access to hosting plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	ListActive(ctx context.Context) ([]domain.Plan, error)
}

type planRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository returns a Postgres-backed implementation.
func NewPlanRepository(pool *pgxpool.Pool) PlanRepository {
	return &planRepository{pool: pool}
}

const planColumns = `id, name, slug, description, domain_limit, storage_limit, bandwidth_limit,
               database_limit, is_active, expires_at, created_at, updated_at`

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	const query = `
        INSERT INTO hosting_plans (name, slug, description, domain_limit, storage_limit, bandwidth_limit, database_limit, is_active, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		plan.Name,
		plan.Slug,
		plan.Description,
		plan.DomainLimit,
		plan.StorageLimit,
		plan.BandwidthLimit,
		plan.DatabaseLimit,
		plan.IsActive,
		plan.ExpiresAt,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM hosting_plans WHERE id=$1`
	plan, err := scanPlan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListActive returns the public catalog: active plans that have not expired.
func (r *planRepository) ListActive(ctx context.Context) ([]domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM hosting_plans
             WHERE is_active AND (expires_at IS NULL OR expires_at > NOW())
             ORDER BY domain_limit ASC, name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var plan domain.Plan
	if err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.Slug,
		&plan.Description,
		&plan.DomainLimit,
		&plan.StorageLimit,
		&plan.BandwidthLimit,
		&plan.DatabaseLimit,
		&plan.IsActive,
		&plan.ExpiresAt,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &plan, nil
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// DomainRepository persists hosted domains.
type DomainRepository interface {
	Create(ctx context.Context, d *domain.Domain) error
	Update(ctx context.Context, d *domain.Domain) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Domain, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]domain.Domain, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	ListExpiringBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Domain, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

type domainRepository struct {
	pool *pgxpool.Pool
}

// NewDomainRepository instantiates repository.
func NewDomainRepository(pool *pgxpool.Pool) DomainRepository {
	return &domainRepository{pool: pool}
}

const domainColumns = `id, user_id, name, status, nameservers, auto_renew, expires_at, created_at, updated_at`

func (r *domainRepository) Create(ctx context.Context, d *domain.Domain) error {
	const query = `
        INSERT INTO domains (user_id, name, status, nameservers, auto_renew, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		d.TenantID,
		d.Name,
		d.Status,
		nameservers(d.Nameservers),
		d.AutoRenew,
		d.ExpiresAt,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *domainRepository) Update(ctx context.Context, d *domain.Domain) error {
	const query = `
        UPDATE domains SET status=$1, nameservers=$2, auto_renew=$3, expires_at=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		d.Status,
		nameservers(d.Nameservers),
		d.AutoRenew,
		d.ExpiresAt,
		d.ID,
	).Scan(&d.UpdatedAt)
}

func (r *domainRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM domains WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *domainRepository) GetByID(ctx context.Context, id string) (*domain.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains WHERE id=$1`
	return scanDomain(r.pool.QueryRow(ctx, query, id))
}

func (r *domainRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM domains WHERE name=$1)`, name).Scan(&exists)
	return exists, err
}

func (r *domainRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]domain.Domain, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + domainColumns + ` FROM domains WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDomains(rows)
}

func (r *domainRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM domains WHERE user_id=$1`, tenantID).Scan(&count)
	return count, err
}

// ListExpiringBetween returns the tenant's domains with expires_at in (from, to].
func (r *domainRepository) ListExpiringBetween(ctx context.Context, tenantID string, from, to time.Time) ([]domain.Domain, error) {
	query := `SELECT ` + domainColumns + ` FROM domains
             WHERE user_id=$1 AND expires_at > $2 AND expires_at <= $3
             ORDER BY expires_at ASC`
	rows, err := r.pool.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDomains(rows)
}

// MarkExpired flips every domain whose expiry lies before now to expired.
func (r *domainRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE domains SET status=$1, updated_at=NOW()
        WHERE expires_at IS NOT NULL AND expires_at < $2 AND status <> $1`,
		domain.DomainStatusExpired, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func nameservers(ns []string) []string {
	if ns == nil {
		return []string{}
	}
	return ns
}

func scanDomain(row pgx.Row) (*domain.Domain, error) {
	var d domain.Domain
	if err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Name,
		&d.Status,
		&d.Nameservers,
		&d.AutoRenew,
		&d.ExpiresAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDomains(rows pgx.Rows) ([]domain.Domain, error) {
	var result []domain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

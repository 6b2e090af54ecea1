package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// TicketFilter captures listing parameters. OverdueAt keeps unresolved tickets
// whose response window, taken from Windows in hours, ended before that instant.
type TicketFilter struct {
	TenantID       *string
	DomainID       *string
	AssigneeID     *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	UnresolvedOnly bool
	OverdueAt      *time.Time
	Windows        map[domain.TicketPriority]int
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// defaultWindowHours applies to priorities missing from TicketFilter.Windows.
const defaultWindowHours = 24

const ticketColumns = `id, external_key, user_id, domain_id, assigned_to, subject, description,
               priority, status, resolution, created_at, updated_at, resolved_at, escalated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, user_id, domain_id, assigned_to, subject, description, priority, status,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.TenantID,
		ticket.DomainID,
		ticket.AssigneeID,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET domain_id=$1, assigned_to=$2, subject=$3, description=$4, priority=$5,
            status=$6, resolution=$7, resolved_at=$8, escalated_at=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.DomainID,
		ticket.AssigneeID,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Resolution,
		ticket.ResolvedAt,
		ticket.EscalatedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE external_key=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, key))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func buildTicketListQuery(filter TicketFilter) (string, []any) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.TenantID != nil {
		clauses = append(clauses, "user_id="+arg(*filter.TenantID))
	}
	if filter.DomainID != nil {
		clauses = append(clauses, "domain_id="+arg(*filter.DomainID))
	}
	if filter.AssigneeID != nil {
		clauses = append(clauses, "assigned_to="+arg(*filter.AssigneeID))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = arg(status)
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			placeholders[i] = arg(pr)
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UnresolvedOnly || filter.OverdueAt != nil {
		clauses = append(clauses, "resolved_at IS NULL AND status <> "+arg(domain.TicketStatusClosed))
	}
	if filter.OverdueAt != nil {
		priorities := make([]string, 0, len(filter.Windows))
		for p := range filter.Windows {
			priorities = append(priorities, string(p))
		}
		sort.Strings(priorities)
		var window strings.Builder
		window.WriteString("CASE priority")
		for _, p := range priorities {
			fmt.Fprintf(&window, " WHEN %s THEN %s::int", arg(p), arg(filter.Windows[domain.TicketPriority(p)]))
		}
		fmt.Fprintf(&window, " ELSE %s::int END", arg(defaultWindowHours))
		clauses = append(clauses, fmt.Sprintf("created_at + make_interval(hours => %s) < %s", window.String(), arg(*filter.OverdueAt)))
	}
	if filter.CreatedFrom != nil {
		clauses = append(clauses, "created_at >= "+arg(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		clauses = append(clauses, "created_at <= "+arg(*filter.CreatedTo))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		placeholder := arg("%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%")
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 15
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)
	return query, args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.TenantID,
		&ticket.DomainID,
		&ticket.AssigneeID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Resolution,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.EscalatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

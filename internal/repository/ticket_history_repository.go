package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostdesk/hosting-service/internal/domain"
)

const defaultHistoryLimit = 100

// TicketHistoryRepository stores the audit trail of status, priority and assignee changes.
// Entries are append-only.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO ticket_history (ticket_id, changed_by_type, changed_by_id, change_type, old_value, new_value)
        VALUES (@ticket_id, @actor_type, @actor_id, @change_type, @old_value, @new_value)
        RETURNING id, created_at`,
		pgx.NamedArgs{
			"ticket_id":   entry.TicketID,
			"actor_type":  entry.ChangedByType,
			"actor_id":    entry.ChangedByID,
			"change_type": entry.ChangeType,
			"old_value":   entry.OldValue,
			"new_value":   entry.NewValue,
		})
	return row.Scan(&entry.ID, &entry.CreatedAt)
}

// ListByTicket returns the oldest limit entries for a ticket in chronological order.
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := r.pool.Query(ctx, `
        SELECT id, ticket_id, changed_by_type, changed_by_id, change_type, old_value, new_value, created_at
        FROM ticket_history
        WHERE ticket_id = $1
        ORDER BY created_at ASC, id ASC
        LIMIT $2`, ticketID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketHistory, error) {
		var h domain.TicketHistory
		err := row.Scan(&h.ID, &h.TicketID, &h.ChangedByType, &h.ChangedByID, &h.ChangeType, &h.OldValue, &h.NewValue, &h.CreatedAt)
		return h, err
	})
}

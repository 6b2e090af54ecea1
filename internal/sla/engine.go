// Package sla computes support-ticket response commitments: overdue detection,
// the response-time metric and the priority escalation and close transitions.
package sla

import (
	"errors"
	"fmt"
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// DefaultWindowHours applies to any priority missing from Thresholds.
const DefaultWindowHours = 24

var (
	// ErrInvalidTimestamp reports a ticket whose timestamps are out of order relative to now.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrTicketClosed is returned when closing a ticket that is already closed.
	ErrTicketClosed = errors.New("ticket already closed")
)

// Thresholds maps a priority to its allowed response window in hours.
type Thresholds map[domain.TicketPriority]int

// DefaultThresholds are the windows used when no configuration is supplied.
func DefaultThresholds() Thresholds {
	return Thresholds{
		domain.TicketPriorityLow:      72,
		domain.TicketPriorityMedium:   24,
		domain.TicketPriorityHigh:     4,
		domain.TicketPriorityCritical: 1,
	}
}

// Window returns the response window for p.
func (t Thresholds) Window(p domain.TicketPriority) time.Duration {
	hours, ok := t[p]
	if !ok {
		hours = DefaultWindowHours
	}
	return time.Duration(hours) * time.Hour
}

// EscalationResult reports the outcome of Escalate.
type EscalationResult struct {
	Escalated   bool
	OldPriority domain.TicketPriority
	NewPriority domain.TicketPriority
}

// Engine evaluates tickets against the configured thresholds.
type Engine struct {
	thresholds Thresholds
}

// NewEngine builds an engine. A nil map means every priority uses DefaultWindowHours.
func NewEngine(thresholds Thresholds) *Engine {
	copied := make(Thresholds, len(thresholds))
	for p, hours := range thresholds {
		copied[p] = hours
	}
	return &Engine{thresholds: copied}
}

// Thresholds returns a copy of the configured windows.
func (e *Engine) Thresholds() Thresholds {
	copied := make(Thresholds, len(e.thresholds))
	for p, hours := range e.thresholds {
		copied[p] = hours
	}
	return copied
}

// ThresholdAt is the instant after which an unresolved ticket is overdue.
func (e *Engine) ThresholdAt(ticket *domain.Ticket) time.Time {
	return ticket.CreatedAt.Add(e.thresholds.Window(ticket.Priority))
}

// IsOverdue reports whether the ticket has outlived its window. Resolved or
// closed tickets are never overdue.
func (e *Engine) IsOverdue(ticket *domain.Ticket, now time.Time) bool {
	if ticket.ResolvedAt != nil || ticket.IsClosed() {
		return false
	}
	return now.After(e.ThresholdAt(ticket))
}

// ResponseTimeHours returns whole hours from creation to resolution, or to now
// while the ticket is unresolved.
func (e *Engine) ResponseTimeHours(ticket *domain.Ticket, now time.Time) (int, error) {
	end := now
	if ticket.ResolvedAt != nil {
		end = *ticket.ResolvedAt
	}
	if end.Before(ticket.CreatedAt) {
		return 0, fmt.Errorf("ticket %s created at %s after %s: %w",
			ticket.ID, ticket.CreatedAt.Format(time.RFC3339), end.Format(time.RFC3339), ErrInvalidTimestamp)
	}
	return int(end.Sub(ticket.CreatedAt) / time.Hour), nil
}

// Escalate raises the ticket priority one step and stamps EscalatedAt. At
// critical it leaves the ticket untouched. Status and ResolvedAt never change.
func (e *Engine) Escalate(ticket *domain.Ticket, now time.Time) EscalationResult {
	old := ticket.Priority
	next, ok := old.Next()
	if !ok {
		return EscalationResult{OldPriority: old, NewPriority: old}
	}
	ticket.Priority = next
	stamp := now
	ticket.EscalatedAt = &stamp
	return EscalationResult{Escalated: true, OldPriority: old, NewPriority: next}
}

// Close moves the ticket to the terminal closed state, stamping ResolvedAt and
// recording the optional resolution. Closed tickets cannot be closed again.
func (e *Engine) Close(ticket *domain.Ticket, resolution *string, now time.Time) (*domain.Ticket, error) {
	if ticket.IsClosed() {
		return ticket, fmt.Errorf("close ticket %s: %w", ticket.ID, ErrTicketClosed)
	}
	if now.Before(ticket.CreatedAt) {
		return ticket, fmt.Errorf("close ticket %s before creation: %w", ticket.ID, ErrInvalidTimestamp)
	}
	stamp := now
	ticket.Status = domain.TicketStatusClosed
	ticket.ResolvedAt = &stamp
	if resolution != nil {
		text := *resolution
		ticket.Resolution = &text
	}
	return ticket, nil
}

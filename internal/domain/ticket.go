package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency. Priorities are totally ordered low < medium < high < critical.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

var priorityOrder = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Priorities returns all priorities in ascending order.
func Priorities() []TicketPriority {
	return append([]TicketPriority(nil), priorityOrder...)
}

// Rank returns the position of p in the ordering, or -1 for unknown values.
func (p TicketPriority) Rank() int {
	for i, candidate := range priorityOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() >= 0
}

// Next returns the priority one step above p. ok is false at critical or for unknown values.
func (p TicketPriority) Next() (TicketPriority, bool) {
	rank := p.Rank()
	if rank < 0 || rank == len(priorityOrder)-1 {
		return p, false
	}
	return priorityOrder[rank+1], true
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	ExternalKey string
	TenantID    string
	DomainID    *string
	AssigneeID  *string
	Subject     string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Resolution  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	EscalatedAt *time.Time
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

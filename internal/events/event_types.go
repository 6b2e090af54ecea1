package events

import (
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketUpdated       EventType = "ticket_updated"
	EventDomainCreated       EventType = "domain_created"
	EventEntitlementDenied   EventType = "entitlement_denied"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type     domain.ActorType `json:"type"`
	TenantID *string          `json:"tenant_id,omitempty"`
}

// SystemActor is used by background workers.
func SystemActor() Actor {
	return Actor{Type: domain.ActorTypeSystem}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TenantID string                `json:"tenant_id"`
	DomainID *string               `json:"domain_id,omitempty"`
	Priority domain.TicketPriority `json:"priority"`
	Subject  string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Trigger     string                `json:"trigger"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID *string `json:"new_assignee_id,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Resolution *string   `json:"resolution,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// TicketUpdatedPayload lists the edited fields and the priority before and after.
type TicketUpdatedPayload struct {
	Fields      []string              `json:"fields,omitempty"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// DomainCreatedPayload payload.
type DomainCreatedPayload struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// EntitlementDeniedPayload payload.
type EntitlementDeniedPayload struct {
	TenantID string         `json:"tenant_id"`
	Action   string         `json:"action"`
	Code     string         `json:"code"`
	Detail   map[string]any `json:"detail,omitempty"`
}

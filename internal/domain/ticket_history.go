package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus   TicketChangeType = "status_change"
	ChangeTypePriority TicketChangeType = "priority_change"
	ChangeTypeAssignee TicketChangeType = "assignee_change"
	ChangeTypeDetails  TicketChangeType = "details_change"
)

// ActorType indicates who triggered a change.
type ActorType string

const (
	ActorTypeTenant ActorType = "tenant"
	ActorTypeStaff  ActorType = "staff"
	ActorTypeSystem ActorType = "system"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType ActorType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}

package dto

import (
	"strings"
	"time"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	DomainID    *string `json:"domain_id" validate:"omitempty,min=1"`
	Subject     string  `json:"subject" validate:"required,min=5,max=255"`
	Description string  `json:"description" validate:"required,min=20,max=10000"`
	Priority    string  `json:"priority" validate:"omitempty,ticket_priority"`
}

// Normalize trims text fields.
func (r *CreateTicketRequest) Normalize() {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Description = strings.TrimSpace(r.Description)
	r.Priority = strings.ToLower(strings.TrimSpace(r.Priority))
	trimPtr(r.DomainID)
	if r.DomainID != nil && *r.DomainID == "" {
		r.DomainID = nil
	}
}

// Input converts the request for the ticket service.
func (r *CreateTicketRequest) Input() service.TicketCreateInput {
	return service.TicketCreateInput{
		DomainID:    r.DomainID,
		Subject:     r.Subject,
		Description: r.Description,
		Priority:    domain.TicketPriority(r.Priority),
	}
}

// UpdateTicketRequest payload. Absent fields are left unchanged; present ones
// follow the same rules as on creation.
type UpdateTicketRequest struct {
	Subject     *string `json:"subject" validate:"omitnil,min=5,max=255"`
	Description *string `json:"description" validate:"omitnil,min=20,max=10000"`
	Priority    *string `json:"priority" validate:"omitnil,ticket_priority"`
}

// Normalize trims text fields.
func (r *UpdateTicketRequest) Normalize() {
	trimPtr(r.Subject)
	trimPtr(r.Description)
	if r.Priority != nil {
		*r.Priority = strings.ToLower(strings.TrimSpace(*r.Priority))
	}
}

// Input converts the request for the ticket service.
func (r *UpdateTicketRequest) Input() service.TicketUpdateInput {
	input := service.TicketUpdateInput{Subject: r.Subject, Description: r.Description}
	if r.Priority != nil {
		priority := domain.TicketPriority(*r.Priority)
		input.Priority = &priority
	}
	return input
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Resolution *string `json:"resolution" validate:"omitempty,max=10000"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,ticket_status"`
}

// Normalize trims the status.
func (r *UpdateStatusRequest) Normalize() {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

// AssignTicketRequest payload. A null assignee unassigns the ticket.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TicketResponse describes a ticket with SLA facts.
type TicketResponse struct {
	ID                string                  `json:"id"`
	ExternalKey       string                  `json:"external_key"`
	TenantID          string                  `json:"user_id"`
	DomainID          *string                 `json:"domain_id"`
	AssigneeID        *string                 `json:"assigned_to"`
	Subject           string                  `json:"subject"`
	Description       string                  `json:"description,omitempty"`
	Status            domain.TicketStatus     `json:"status"`
	Priority          domain.TicketPriority   `json:"priority"`
	Resolution        *string                 `json:"resolution"`
	IsOverdue         bool                    `json:"is_overdue"`
	ResponseTimeHours int                     `json:"response_time"`
	RespondBy         time.Time               `json:"respond_by"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	ResolvedAt        *time.Time              `json:"resolved_at"`
	EscalatedAt       *time.Time              `json:"escalated_at"`
	History           []TicketHistoryResponse `json:"history,omitempty"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.ActorType        `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// EscalationResponse reports an escalation attempt.
type EscalationResponse struct {
	Escalated   bool                  `json:"escalated"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Ticket      TicketResponse        `json:"ticket"`
}

// NewTicketResponse maps a ticket view. Description is only included in detail views.
func NewTicketResponse(v *service.TicketView, detailed bool) TicketResponse {
	t := v.Ticket
	resp := TicketResponse{
		ID:                t.ID,
		ExternalKey:       t.ExternalKey,
		TenantID:          t.TenantID,
		DomainID:          t.DomainID,
		AssigneeID:        t.AssigneeID,
		Subject:           t.Subject,
		Status:            t.Status,
		Priority:          t.Priority,
		Resolution:        t.Resolution,
		IsOverdue:         v.IsOverdue,
		ResponseTimeHours: v.ResponseTimeHours,
		RespondBy:         v.RespondBy,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		ResolvedAt:        t.ResolvedAt,
		EscalatedAt:       t.EscalatedAt,
	}
	if detailed {
		resp.Description = t.Description
		resp.History = make([]TicketHistoryResponse, 0, len(v.History))
		for _, entry := range v.History {
			resp.History = append(resp.History, TicketHistoryResponse{
				ID:            entry.ID,
				ChangeType:    entry.ChangeType,
				ChangedByType: entry.ChangedByType,
				ChangedByID:   entry.ChangedByID,
				OldValue:      entry.OldValue,
				NewValue:      entry.NewValue,
				CreatedAt:     entry.CreatedAt,
			})
		}
	}
	return resp
}

// NewTicketResponses maps a list of views.
func NewTicketResponses(views []service.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, NewTicketResponse(&views[i], false))
	}
	return out
}

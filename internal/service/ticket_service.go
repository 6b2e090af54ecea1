package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/events"
	"github.com/hostdesk/hosting-service/internal/observability"
	"github.com/hostdesk/hosting-service/internal/repository"
	"github.com/hostdesk/hosting-service/internal/sla"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

// Escalation triggers recorded on events and metrics.
const (
	TriggerManual = "manual"
	TriggerSweep  = "sla_sweep"
)

// TicketService coordinates ticket workflows and applies the SLA engine.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	domains    repository.DomainRepository
	tenants    repository.TenantRepository
	engine     *sla.Engine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	now        Clock
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	DomainRepo  repository.DomainRepository
	TenantRepo  repository.TenantRepository
	Engine      *sla.Engine
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Now         Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	DomainID    *string
	Subject     string
	Description string
	Priority    domain.TicketPriority
}

// TicketUpdateInput carries optional edits to a ticket. Nil fields are unchanged.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Priority    *domain.TicketPriority
}

// TicketListFilter describes tenant listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// SupportTicketFilter describes support queue filters.
type SupportTicketFilter struct {
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	OverdueOnly bool
	Limit       int
	Offset      int
}

// TicketView is a ticket annotated with SLA facts at the time of the call.
type TicketView struct {
	Ticket            *domain.Ticket
	IsOverdue         bool
	ResponseTimeHours int
	RespondBy         time.Time
	History           []domain.TicketHistory
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	engine := deps.Engine
	if engine == nil {
		engine = sla.NewEngine(sla.DefaultThresholds())
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		domains:    deps.DomainRepo,
		tenants:    deps.TenantRepo,
		engine:     engine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		now:        clockOrDefault(deps.Now),
	}
}

// Engine exposes the SLA engine used by this service.
func (s *TicketService) Engine() *sla.Engine {
	return s.engine
}

// CreateTicket opens a ticket for the tenant. A referenced domain must belong to the tenant.
func (s *TicketService) CreateTicket(ctx context.Context, tenant *domain.Tenant, input TicketCreateInput) (*TicketView, error) {
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.DomainID != nil {
		d, err := s.domains.GetByID(ctx, *input.DomainID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		if err != nil || d.TenantID != tenant.ID {
			return nil, apperrors.NewValidationError("domain not found for tenant", map[string]any{"domain_id": *input.DomainID})
		}
	}

	// The SLA clock starts at the service clock, not the database's.
	now := s.now()
	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		TenantID:    tenant.ID,
		DomainID:    input.DomainID,
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		Actor:     tenantActor(tenant),
		Payload: events.TicketCreatedPayload{
			TenantID: tenant.ID,
			DomainID: ticket.DomainID,
			Priority: ticket.Priority,
			Subject:  ticket.Subject,
		},
	})
	return s.view(ticket, nil)
}

// ListTenantTickets returns the tenant's own tickets.
func (s *TicketService) ListTenantTickets(ctx context.Context, tenant *domain.Tenant, filter TicketListFilter) ([]TicketView, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TenantID:    &tenant.ID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.views(tickets)
}

// GetTicket returns the ticket with its SLA facts and history.
func (s *TicketService) GetTicket(ctx context.Context, tenant *domain.Tenant, ticketID string) (*TicketView, error) {
	ticket, err := s.loadAccessible(ctx, tenant, ticketID)
	if err != nil {
		return nil, err
	}
	var history []domain.TicketHistory
	if s.history != nil {
		history, err = s.history.ListByTicket(ctx, ticket.ID, 100)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return s.view(ticket, history)
}

// CloseTicket closes the ticket through the SLA engine.
func (s *TicketService) CloseTicket(ctx context.Context, tenant *domain.Tenant, ticketID string, resolution *string) (*TicketView, error) {
	ticket, err := s.loadAccessible(ctx, tenant, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if _, err := s.engine.Close(ticket, trimmed(resolution), s.now()); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordStatusChange(ctx, tenant, ticket.ID, oldStatus, ticket.Status); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketClosed,
		SubjectID: ticket.ID,
		Actor:     tenantActor(tenant),
		Payload: events.TicketClosedPayload{
			Resolution: ticket.Resolution,
			ResolvedAt: *ticket.ResolvedAt,
		},
	})
	return s.view(ticket, nil)
}

// ListSupportTickets returns the support queue. OverdueOnly is evaluated by
// the store so pagination counts only overdue tickets.
func (s *TicketService) ListSupportTickets(ctx context.Context, filter SupportTicketFilter) ([]TicketView, error) {
	query := repository.TicketFilter{
		AssigneeID: filter.AssigneeID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.OverdueOnly {
		now := s.now()
		query.OverdueAt = &now
		query.Windows = s.engine.Thresholds()
	}
	tickets, err := s.tickets.ListWithFilter(ctx, query)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.views(tickets)
}

// UpdateTicket edits the subject, description or priority of an open ticket.
// Priority changes are recorded in the history like escalations.
func (s *TicketService) UpdateTicket(ctx context.Context, tenant *domain.Tenant, ticketID string, input TicketUpdateInput) (*TicketView, error) {
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}
	ticket, err := s.loadAccessible(ctx, tenant, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, apperrors.MapError(sla.ErrTicketClosed)
	}

	oldPriority := ticket.Priority
	var fields []string
	before, after := map[string]any{}, map[string]any{}
	if input.Subject != nil {
		if subject := strings.TrimSpace(*input.Subject); subject != ticket.Subject {
			before["subject"], after["subject"] = ticket.Subject, subject
			ticket.Subject = subject
			fields = append(fields, "subject")
		}
	}
	if input.Description != nil {
		if description := strings.TrimSpace(*input.Description); description != ticket.Description {
			ticket.Description = description
			after["description_edited"] = true
			fields = append(fields, "description")
		}
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if len(fields) == 0 && ticket.Priority == oldPriority {
		return s.view(ticket, nil)
	}

	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(fields) > 0 {
		if err := s.recordChange(ctx, tenant, ticket.ID, domain.ChangeTypeDetails, before, after); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if ticket.Priority != oldPriority {
		if err := s.recordChange(ctx, tenant, ticket.ID, domain.ChangeTypePriority,
			map[string]any{"priority": oldPriority},
			map[string]any{"priority": ticket.Priority}); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketUpdated,
		SubjectID: ticket.ID,
		Actor:     tenantActor(tenant),
		Payload: events.TicketUpdatedPayload{
			Fields:      fields,
			OldPriority: oldPriority,
			NewPriority: ticket.Priority,
		},
	})
	return s.view(ticket, nil)
}

// UpdateStatus moves a ticket along the workflow. Resolving or closing stamps
// ResolvedAt; reopening a resolved ticket clears it.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.Tenant, ticketID string, newStatus domain.TicketStatus) (*TicketView, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, apperrors.MapError(sla.ErrTicketClosed)
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	now := s.now()
	switch newStatus {
	case domain.TicketStatusClosed:
		if _, err := s.engine.Close(ticket, nil, now); err != nil {
			return nil, apperrors.MapError(err)
		}
	case domain.TicketStatusResolved:
		stamp := now
		ticket.ResolvedAt = &stamp
		ticket.Status = newStatus
	default:
		ticket.ResolvedAt = nil
		ticket.Status = newStatus
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordStatusChange(ctx, actor, ticket.ID, oldStatus, newStatus); err != nil {
		return nil, apperrors.MapError(err)
	}
	event := events.Event{
		Type:      events.EventTicketStatusChanged,
		SubjectID: ticket.ID,
		Actor:     tenantActor(actor),
		Payload:   events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus},
	}
	if newStatus == domain.TicketStatusClosed {
		event.Type = events.EventTicketClosed
		event.Payload = events.TicketClosedPayload{Resolution: ticket.Resolution, ResolvedAt: *ticket.ResolvedAt}
	}
	publishEvent(ctx, s.dispatcher, event)
	return s.view(ticket, nil)
}

// Escalate raises the ticket priority one step on behalf of a support operator.
func (s *TicketService) Escalate(ctx context.Context, actor *domain.Tenant, ticketID string) (*TicketView, sla.EscalationResult, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, sla.EscalationResult{}, err
	}
	result, err := s.escalate(ctx, actor, ticket, TriggerManual)
	if err != nil {
		return nil, result, err
	}
	view, err := s.view(ticket, nil)
	return view, result, err
}

// Assign hands the ticket to a support operator, or unassigns it when assigneeID is nil.
func (s *TicketService) Assign(ctx context.Context, actor *domain.Tenant, ticketID string, assigneeID *string) (*TicketView, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		assignee, err := s.tenants.GetByID(ctx, *assigneeID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		if err != nil || !assignee.IsStaff() {
			return nil, apperrors.NewValidationError("assignee must be a support operator", map[string]any{"assignee_id": *assigneeID})
		}
	}

	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assignee_id": oldAssignee},
		map[string]any{"assignee_id": assigneeID}); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketAssigned,
		SubjectID: ticket.ID,
		Actor:     tenantActor(actor),
		Payload:   events.TicketAssignedPayload{OldAssigneeID: oldAssignee, NewAssigneeID: assigneeID},
	})
	return s.view(ticket, nil)
}

// ListUnresolved returns tickets that are neither resolved nor closed, for background sweeps.
func (s *TicketService) ListUnresolved(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		UnresolvedOnly: true,
		Limit:          limit,
		Offset:         offset,
	})
}

// EscalateOverdue escalates a ticket on behalf of the SLA sweeper.
func (s *TicketService) EscalateOverdue(ctx context.Context, ticket *domain.Ticket) (sla.EscalationResult, error) {
	return s.escalate(ctx, nil, ticket, TriggerSweep)
}

func (s *TicketService) escalate(ctx context.Context, actor *domain.Tenant, ticket *domain.Ticket, trigger string) (sla.EscalationResult, error) {
	if ticket.IsClosed() {
		return sla.EscalationResult{OldPriority: ticket.Priority, NewPriority: ticket.Priority}, apperrors.MapError(sla.ErrTicketClosed)
	}
	result := s.engine.Escalate(ticket, s.now())
	if !result.Escalated {
		return result, nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return result, apperrors.MapError(err)
	}
	if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": result.OldPriority},
		map[string]any{"priority": result.NewPriority, "trigger": trigger}); err != nil {
		return result, apperrors.MapError(err)
	}
	s.metrics.RecordEscalation(string(result.NewPriority), trigger)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventTicketEscalated,
		SubjectID: ticket.ID,
		Actor:     tenantActor(actor),
		Payload: events.TicketEscalatedPayload{
			OldPriority: result.OldPriority,
			NewPriority: result.NewPriority,
			Trigger:     trigger,
		},
	})
	return result, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// loadAccessible fetches a ticket owned by the tenant. Staff may see any ticket.
func (s *TicketService) loadAccessible(ctx context.Context, tenant *domain.Tenant, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.TenantID != tenant.ID && !tenant.IsStaff() {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// view annotates the ticket with SLA facts. A ticket stamped after now is
// reported as invalid input rather than as a zero response time.
func (s *TicketService) view(ticket *domain.Ticket, history []domain.TicketHistory) (*TicketView, error) {
	now := s.now()
	hours, err := s.engine.ResponseTimeHours(ticket, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketView{
		Ticket:            ticket,
		IsOverdue:         s.engine.IsOverdue(ticket, now),
		ResponseTimeHours: hours,
		RespondBy:         s.engine.ThresholdAt(ticket),
		History:           history,
	}, nil
}

func (s *TicketService) views(tickets []domain.Ticket) ([]TicketView, error) {
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		v, err := s.view(&tickets[i], nil)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, actor *domain.Tenant, ticketID string, oldStatus, newStatus domain.TicketStatus) error {
	return s.recordChange(ctx, actor, ticketID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus})
}

func (s *TicketService) recordChange(ctx context.Context, actor *domain.Tenant, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	a := tenantActor(actor)
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: a.Type,
		ChangedByID:   a.TenantID,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	return s.history.Create(ctx, entry)
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

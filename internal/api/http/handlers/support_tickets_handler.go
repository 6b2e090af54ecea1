package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/api/dto"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/service"
)

// SupportTicketsHandler serves the support queue.
type SupportTicketsHandler struct {
	tickets TicketAPI
}

// NewSupportTicketsHandler constructs handler.
func NewSupportTicketsHandler(tickets TicketAPI) *SupportTicketsHandler {
	return &SupportTicketsHandler{tickets: tickets}
}

// List handles GET /support/tickets.
func (h *SupportTicketsHandler) List(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	filter := service.SupportTicketFilter{
		Statuses:    parseStatuses(c.Query("status")),
		Priorities:  parsePriorities(c.Query("priority")),
		OverdueOnly: c.QueryBool("overdue"),
		Limit:       limit,
		Offset:      offset,
	}
	if assignee := strings.TrimSpace(c.Query("assigned_to")); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	views, err := h.tickets.ListSupportTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(views)})
}

// UpdateStatus handles PATCH /support/tickets/:id/status.
func (h *SupportTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.UpdateStatus(c.UserContext(), actor, c.Params("id"), domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(view, false)})
}

// Escalate handles POST /support/tickets/:id/escalate.
func (h *SupportTicketsHandler) Escalate(c *fiber.Ctx) error {
	actor, err := currentTenant(c)
	if err != nil {
		return err
	}
	view, result, err := h.tickets.Escalate(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EscalationResponse{
		Escalated:   result.Escalated,
		OldPriority: result.OldPriority,
		NewPriority: result.NewPriority,
		Ticket:      dto.NewTicketResponse(view, false),
	}})
}

// Assign handles POST /support/tickets/:id/assign.
func (h *SupportTicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(view, false)})
}

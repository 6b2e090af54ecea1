package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/api/dto"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/service"
	"github.com/hostdesk/hosting-service/internal/sla"
)

// TicketAPI is the ticket surface the handlers need.
type TicketAPI interface {
	CreateTicket(ctx context.Context, tenant *domain.Tenant, input service.TicketCreateInput) (*service.TicketView, error)
	ListTenantTickets(ctx context.Context, tenant *domain.Tenant, filter service.TicketListFilter) ([]service.TicketView, error)
	GetTicket(ctx context.Context, tenant *domain.Tenant, ticketID string) (*service.TicketView, error)
	UpdateTicket(ctx context.Context, tenant *domain.Tenant, ticketID string, input service.TicketUpdateInput) (*service.TicketView, error)
	CloseTicket(ctx context.Context, tenant *domain.Tenant, ticketID string, resolution *string) (*service.TicketView, error)
	ListSupportTickets(ctx context.Context, filter service.SupportTicketFilter) ([]service.TicketView, error)
	UpdateStatus(ctx context.Context, actor *domain.Tenant, ticketID string, status domain.TicketStatus) (*service.TicketView, error)
	Escalate(ctx context.Context, actor *domain.Tenant, ticketID string) (*service.TicketView, sla.EscalationResult, error)
	Assign(ctx context.Context, actor *domain.Tenant, ticketID string, assigneeID *string) (*service.TicketView, error)
}

// TicketsHandler manages tenant ticket endpoints.
type TicketsHandler struct {
	tickets TicketAPI
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketAPI) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.CreateTicket(c.UserContext(), tenant, req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(view, true)})
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	views, err := h.tickets.ListTenantTickets(c.UserContext(), tenant, service.TicketListFilter{
		Statuses:    parseStatuses(c.Query("status")),
		Priorities:  parsePriorities(c.Query("priority")),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(views)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	view, err := h.tickets.GetTicket(c.UserContext(), tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(view, true)})
}

// Update handles PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.UpdateTicket(c.UserContext(), tenant, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(view, true)})
}

// Close handles POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if len(c.Body()) > 0 {
		if err := dto.Bind(c, &req); err != nil {
			return err
		}
	}
	view, err := h.tickets.CloseTicket(c.UserContext(), tenant, c.Params("id"), req.Resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(view, false)})
}

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/api/dto"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/service"
	apperrors "github.com/hostdesk/hosting-service/pkg/util"
)

// DomainAPI is the domain surface the handler needs.
type DomainAPI interface {
	ListDomains(ctx context.Context, tenant *domain.Tenant, limit, offset int) ([]service.DomainView, error)
	GetDomain(ctx context.Context, tenant *domain.Tenant, domainID string) (*service.DomainView, error)
	CreateDomain(ctx context.Context, tenant *domain.Tenant, input service.DomainCreateInput) (*service.DomainView, error)
	UpdateDomain(ctx context.Context, tenant *domain.Tenant, domainID string, input service.DomainUpdateInput) (*service.DomainView, error)
	DeleteDomain(ctx context.Context, tenant *domain.Tenant, domainID string) error
	ListExpiring(ctx context.Context, tenant *domain.Tenant, days int) ([]service.DomainView, error)
	RecordUsage(ctx context.Context, domainID string, usage domain.UsageSnapshot) (*domain.UsageSnapshot, error)
	Usage(ctx context.Context, tenant *domain.Tenant, domainID string) (*service.UsageReport, error)
	Dashboard(ctx context.Context, tenant *domain.Tenant) (*service.Dashboard, error)
}

// DomainsHandler manages hosted domain endpoints.
type DomainsHandler struct {
	domains DomainAPI
}

// NewDomainsHandler constructs handler.
func NewDomainsHandler(domains DomainAPI) *DomainsHandler {
	return &DomainsHandler{domains: domains}
}

// List handles GET /domains.
func (h *DomainsHandler) List(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	views, err := h.domains.ListDomains(c.UserContext(), tenant, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDomainResponses(views)})
}

// Get handles GET /domains/:id.
func (h *DomainsHandler) Get(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	view, err := h.domains.GetDomain(c.UserContext(), tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDomainResponse(view)})
}

// Create handles POST /domains.
func (h *DomainsHandler) Create(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.CreateDomainRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.domains.CreateDomain(c.UserContext(), tenant, service.DomainCreateInput{
		Name:        req.Name,
		Nameservers: req.Nameservers,
		AutoRenew:   req.AutoRenew,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDomainResponse(view)})
}

// Update handles PATCH /domains/:id.
func (h *DomainsHandler) Update(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDomainRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.domains.UpdateDomain(c.UserContext(), tenant, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDomainResponse(view)})
}

// Delete handles DELETE /domains/:id.
func (h *DomainsHandler) Delete(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	if err := h.domains.DeleteDomain(c.UserContext(), tenant, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Expiring handles GET /domains/expiring?days=N.
func (h *DomainsHandler) Expiring(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("days must be an integer", map[string]any{"days": raw})
		}
		days = parsed
	}
	views, err := h.domains.ListExpiring(c.UserContext(), tenant, days)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDomainResponses(views)})
}

// Usage handles GET /domains/:id/usage.
func (h *DomainsHandler) Usage(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	report, err := h.domains.Usage(c.UserContext(), tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUsageReportResponse(report)})
}

// Dashboard handles GET /dashboard.
func (h *DomainsHandler) Dashboard(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	board, err := h.domains.Dashboard(c.UserContext(), tenant)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDashboardResponse(board)})
}

// RecordUsage handles PUT /admin/domains/:id/usage.
func (h *DomainsHandler) RecordUsage(c *fiber.Ctx) error {
	var req dto.RecordUsageRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}
	snapshot, err := h.domains.RecordUsage(c.UserContext(), c.Params("id"), req.Snapshot())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUsageSnapshotResponse(snapshot)})
}

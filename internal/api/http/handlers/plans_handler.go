package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/hostdesk/hosting-service/internal/api/dto"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/service"
)

// PlanAPI is the plan surface the handler needs.
type PlanAPI interface {
	ListPlans(ctx context.Context) ([]domain.Plan, error)
	Subscribe(ctx context.Context, tenant *domain.Tenant, planID string) (*service.PlanStatus, error)
	Current(ctx context.Context, tenant *domain.Tenant) (*service.PlanStatus, error)
}

// PlansHandler exposes the plan catalog.
type PlansHandler struct {
	plans PlanAPI
}

// NewPlansHandler constructs handler.
func NewPlansHandler(plans PlanAPI) *PlansHandler {
	return &PlansHandler{plans: plans}
}

// List handles GET /plans.
func (h *PlansHandler) List(c *fiber.Ctx) error {
	plans, err := h.plans.ListPlans(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, dto.NewPlanResponse(&plans[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Subscribe handles POST /plans/:id/subscribe.
func (h *PlansHandler) Subscribe(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	status, err := h.plans.Subscribe(c.UserContext(), tenant, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPlanStatusResponse(status)})
}

// Current handles GET /plans/current.
func (h *PlansHandler) Current(c *fiber.Ctx) error {
	tenant, err := currentTenant(c)
	if err != nil {
		return err
	}
	status, err := h.plans.Current(c.UserContext(), tenant)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPlanStatusResponse(status)})
}

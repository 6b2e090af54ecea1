package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type probe struct {
	name   string
	pinger Pinger
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	probes      []probe
}

// NewHealthHandler builds the handler. A nil pinger is reported as disabled and
// does not affect readiness.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		probes:      []probe{{name: "postgres", pinger: postgres}, {name: "redis", pinger: redis}},
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive", "service": h.serviceName, "version": h.version})
}

// Ready handles GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	deps, ready := h.check(ctx)
	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "service": h.serviceName, "dependencies": deps})
}

func (h *HealthHandler) check(ctx context.Context) (fiber.Map, bool) {
	deps := fiber.Map{}
	ready := true
	for _, p := range h.probes {
		switch {
		case p.pinger == nil:
			deps[p.name] = "disabled"
		case p.pinger.Ping(ctx) != nil:
			deps[p.name] = "unavailable"
			ready = false
		default:
			deps[p.name] = "ok"
		}
	}
	return deps, ready
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hostdesk/hosting-service/internal/api/http/handlers"
	"github.com/hostdesk/hosting-service/internal/auth"
	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Plans          *handlers.PlansHandler
	Domains        *handlers.DomainsHandler
	Tickets        *handlers.TicketsHandler
	Support        *handlers.SupportTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	MetricsPath    string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	authn := cfg.AuthMiddleware.Handle

	plans := app.Group("/plans", authn)
	plans.Get("/", cfg.Plans.List)
	plans.Get("/current", cfg.Plans.Current)
	plans.Post("/:id/subscribe", cfg.Plans.Subscribe)

	domains := app.Group("/domains", authn)
	domains.Get("/", cfg.Domains.List)
	domains.Post("/", cfg.Domains.Create)
	domains.Get("/expiring", cfg.Domains.Expiring)
	domains.Get("/:id", cfg.Domains.Get)
	domains.Patch("/:id", cfg.Domains.Update)
	domains.Delete("/:id", cfg.Domains.Delete)
	domains.Get("/:id/usage", cfg.Domains.Usage)

	app.Get("/dashboard", authn, cfg.Domains.Dashboard)

	tickets := app.Group("/tickets", authn)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Post("/:id/close", cfg.Tickets.Close)

	support := app.Group("/support", authn, auth.RequireStaff())
	support.Get("/tickets", cfg.Support.List)
	support.Patch("/tickets/:id/status", cfg.Support.UpdateStatus)
	support.Post("/tickets/:id/escalate", cfg.Support.Escalate)
	support.Post("/tickets/:id/assign", cfg.Support.Assign)

	admin := app.Group("/admin", authn, auth.RequireRole(domain.TenantRoleAdmin, domain.TenantRoleSupport))
	admin.Put("/domains/:id/usage", cfg.Domains.RecordUsage)
}

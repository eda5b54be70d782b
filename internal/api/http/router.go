package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/helpdesk-admin/internal/api/http/handlers"
	"github.com/deskops/helpdesk-admin/internal/auth"
	"github.com/deskops/helpdesk-admin/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Resources      *handlers.ResourcesHandler
	Tickets        *handlers.TicketsHandler
	Ops            *handlers.OpsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole())
	adminOnly := auth.RequireRole(domain.OperatorRoleAdmin)

	api.Get("/resources", cfg.Resources.List)
	api.Get("/resources/:name", cfg.Resources.State)
	api.Get("/resources/:name/:id", cfg.Resources.Get)
	api.Post("/resources/:name/fetch", cfg.Resources.Fetch)
	api.Delete("/resources/:name/error", cfg.Resources.ClearError)
	api.Post("/resources/:name", adminOnly, cfg.Resources.Create)
	api.Put("/resources/:name/:id", adminOnly, cfg.Resources.Update)
	api.Delete("/resources/:name/:id", adminOnly, cfg.Resources.Delete)

	api.Post("/tickets", adminOnly, cfg.Tickets.CreateTicket)
	api.Post("/tickets/:id/reply", adminOnly, cfg.Tickets.Reply)
	api.Patch("/systems/:id/status", adminOnly, cfg.Tickets.SetSystemStatus)

	api.Get("/journal", cfg.Ops.Journal)
	api.Get("/metrics", cfg.Ops.Metrics)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/benleytuano/ts-api-service/internal/api/http/handlers"
	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Metrics        *handlers.MetricsHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Snapshot)
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireActor())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", auth.RequireCapability(cfg.Policy, domain.CapTicketsDelete), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", cfg.Tickets.Claim)
	tickets.Post("/:id/reassign", cfg.Tickets.Reassign)
	tickets.Post("/:id/unassign", cfg.Tickets.Unassign)
	tickets.Post("/:id/resolve", cfg.Tickets.Resolve)
	tickets.Get("/:id/updates", cfg.Tickets.ListUpdates)
	tickets.Post("/:id/updates", cfg.Tickets.AddUpdate)
}

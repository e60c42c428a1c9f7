package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk-sla/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Sla           *handlers.SlaHandler
	Notifications *handlers.NotificationHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Shared-secret cron trigger; not exposed through the public gateway.
	app.Get("/internal/sla/check", cfg.Sla.Check)

	app.Get("/sla/status", cfg.Sla.Status)
	app.Get("/sla/tickets/:ticketId", cfg.Sla.TicketStatus)

	app.Get("/users/:userId/notifications", cfg.Notifications.ListForUser)
}

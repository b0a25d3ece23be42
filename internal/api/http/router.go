package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/voc-service/internal/api/http/handlers"
	"github.com/spec-kit/voc-service/internal/auth"
	"github.com/spec-kit/voc-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Bulk           *handlers.BulkHandler
	Categories     *handlers.CategoriesHandler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Auth.Login)
	api.Get("/categories", cfg.Categories.List)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/track/:identifier", cfg.Tickets.TrackTicket)

	managers := []fiber.Handler{cfg.AuthMiddleware, auth.RequireRole(domain.UserRoleAdmin, domain.UserRoleManager)}
	tickets.Post("/bulk/status", append(managers, cfg.Bulk.ChangeStatus)...)
	tickets.Post("/bulk/assignee", append(managers, cfg.Bulk.Assign)...)
	tickets.Post("/bulk/priority", append(managers, cfg.Bulk.ChangePriority)...)

	staff := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware, auth.RequireRole(), h}
	}
	tickets.Get("/", staff(cfg.Tickets.ListTickets)...)
	tickets.Get("/:id", staff(cfg.Tickets.GetTicket)...)
	tickets.Put("/:id", staff(cfg.Tickets.UpdateTicket)...)
	tickets.Patch("/:id/status", staff(cfg.Tickets.ChangeStatus)...)
	tickets.Patch("/:id/assignee", staff(cfg.Tickets.Assign)...)
	tickets.Delete("/:id/assignee", staff(cfg.Tickets.Unassign)...)
	tickets.Get("/:id/history", staff(cfg.Tickets.History)...)
	tickets.Post("/:id/memos", staff(cfg.Tickets.AddMemo)...)
	tickets.Post("/:id/attachments", staff(cfg.Tickets.AddAttachment)...)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-desk/internal/api/http/handlers"
	"github.com/spec-kit/request-desk/internal/auth"
	"github.com/spec-kit/request-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Requests       *handlers.RequestsHandler
	Statistics     *handlers.StatisticsHandler
	Billing        *handlers.BillingHandler
	Reports        *handlers.ReportsHandler
	Clients        *handlers.ClientsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireRole())
	managers := auth.RequireRole(domain.RoleAdmin, domain.RoleDirector, domain.RoleLead)
	billing := auth.RequireRole(domain.RoleAdmin, domain.RoleDirector)

	requests := api.Group("/requests")
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/", cfg.Requests.List)
	requests.Get("/pending", cfg.Requests.ListPending)
	requests.Post("/transfer", managers, cfg.Requests.Transfer)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Patch("/:id", cfg.Requests.Update)
	requests.Get("/:id/time", cfg.Requests.TimeSpent)
	requests.Get("/:id/audit", cfg.Requests.Audit)
	requests.Post("/:id/accept", cfg.Requests.Accept)
	requests.Post("/:id/state", cfg.Requests.ChangeState)
	requests.Post("/:id/pause", cfg.Requests.Pause)
	requests.Post("/:id/resume", cfg.Requests.Resume)

	api.Get("/history", cfg.Requests.History)

	stats := api.Group("/statistics")
	stats.Get("/", cfg.Statistics.List)
	stats.Get("/summary", cfg.Statistics.Summary)
	stats.Get("/by-area", cfg.Statistics.ByArea)
	stats.Post("/recalculate", billing, cfg.Statistics.Recalculate)
	stats.Get("/users/:id", cfg.Statistics.Get)
	stats.Post("/users/:id/calculate", cfg.Statistics.Calculate)

	bill := api.Group("/billing", billing)
	bill.Get("/", cfg.Billing.List)
	bill.Post("/generate", cfg.Billing.Generate)
	bill.Post("/generate-all", cfg.Billing.GenerateAll)
	bill.Post("/generate-automatic", cfg.Billing.GenerateAutomatic)
	bill.Get("/:id", cfg.Billing.Get)
	bill.Post("/:id/close", cfg.Billing.Close)
	bill.Post("/:id/invoice", cfg.Billing.Invoice)

	reports := api.Group("/reports")
	reports.Post("/", cfg.Reports.Create)
	reports.Get("/:id", cfg.Reports.Get)
	reports.Post("/:id/requests", cfg.Reports.LinkRequests)

	clients := api.Group("/clients")
	clients.Get("/", cfg.Clients.List)
	clients.Get("/:id", cfg.Clients.Get)
}

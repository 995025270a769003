package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/http/handlers"
	"github.com/spec-kit/escalation-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Signals        *handlers.SignalsHandler
	Tickets        *handlers.TicketsHandler
	Agents         *handlers.AgentsHandler
	Rules          *handlers.RulesHandler
	Metrics        *handlers.MetricsHandler
	Webhooks       *handlers.WebhooksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Signal intake and reads stay open;
// everything that mutates engine state sits behind the operator token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	app.Post("/signals", cfg.Signals.SubmitSignal)

	app.Get("/tickets", cfg.Tickets.ListTickets)
	app.Get("/tickets/:id", cfg.Tickets.GetTicket)
	app.Get("/agents", cfg.Agents.ListAgents)
	app.Get("/agents/available", cfg.Agents.ListAvailableAgents)
	app.Get("/agents/:id", cfg.Agents.GetAgent)
	app.Get("/rules", cfg.Rules.ListRules)
	app.Get("/stats", cfg.Metrics.GetStats)
	app.Get("/metrics", cfg.Metrics.GetCounters)
	app.Get("/webhooks", cfg.Webhooks.ListWebhooks)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Post("/tickets/:id/assign", cfg.Tickets.AssignTicket)
	protected.Post("/tickets/:id/response", cfg.Tickets.RecordResponse)
	protected.Post("/tickets/:id/resolve", cfg.Tickets.ResolveTicket)
	protected.Post("/tickets/:id/close", cfg.Tickets.CloseTicket)
	protected.Post("/tickets/:id/reopen", cfg.Tickets.ReopenTicket)

	protected.Post("/agents", cfg.Agents.RegisterAgent)
	protected.Patch("/agents/:id/status", cfg.Agents.UpdateAgentStatus)

	protected.Post("/rules", cfg.Rules.CreateRule)
	protected.Patch("/rules/:id", cfg.Rules.UpdateRule)
	protected.Delete("/rules/:id", cfg.Rules.DeleteRule)

	protected.Post("/webhooks", cfg.Webhooks.RegisterWebhook)
}

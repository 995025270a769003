package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/observability"
	"github.com/spec-kit/escalation-engine/internal/service"
)

// MetricsHandler exposes windowed ticket statistics and engine counters.
type MetricsHandler struct {
	metrics *service.MetricsService
	store   *service.TicketStore
	runtime *observability.Metrics
}

// NewMetricsHandler constructs handler.
func NewMetricsHandler(metrics *service.MetricsService, store *service.TicketStore, runtime *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, store: store, runtime: runtime}
}

// GetStats GET /stats?period=hour|day|week|month. Unknown periods fall back
// to a day.
func (h *MetricsHandler) GetStats(c *fiber.Ctx) error {
	period := service.StatsPeriod(c.Query("period", string(service.StatsPeriodDay)))
	stats := h.metrics.GetStats(period)
	return c.JSON(fiber.Map{"data": fiber.Map{
		"stats":          stats,
		"breaches_total": h.store.BreachCount(),
	}})
}

// GetCounters GET /metrics returns the process-level counters.
func (h *MetricsHandler) GetCounters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.runtime.Snapshot()})
}

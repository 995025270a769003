package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/service"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util"
)

// RulesHandler manages the escalation rule table endpoints.
type RulesHandler struct {
	engine *service.RuleEngine
}

// NewRulesHandler constructs handler.
func NewRulesHandler(engine *service.RuleEngine) *RulesHandler {
	return &RulesHandler{engine: engine}
}

// CreateRule POST /rules.
func (h *RulesHandler) CreateRule(c *fiber.Ctx) error {
	var req dto.CreateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if len(req.Actions) == 0 {
		return apperrors.NewValidationError("at least one action required", nil)
	}

	rule := h.engine.AddRule(service.RuleCreateInput{
		Name:       req.Name,
		Priority:   req.Priority,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		Enabled:    req.Enabled,
	})
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": rule})
}

// ListRules GET /rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.engine.ListRules()})
}

// UpdateRule PATCH /rules/:id.
func (h *RulesHandler) UpdateRule(c *fiber.Ctx) error {
	var req dto.UpdateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	rule := h.engine.UpdateRule(c.Params("id"), req.Enabled, req.Priority)
	if rule == nil {
		return apperrors.NewNotFound("rule", map[string]any{"rule_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": rule})
}

// DeleteRule DELETE /rules/:id.
func (h *RulesHandler) DeleteRule(c *fiber.Ctx) error {
	if !h.engine.RemoveRule(c.Params("id")) {
		return apperrors.NewNotFound("rule", map[string]any{"rule_id": c.Params("id")})
	}
	return c.SendStatus(http.StatusNoContent)
}

package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/service"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util"
)

// SignalsHandler accepts analyzed conversation signals for rule evaluation.
type SignalsHandler struct {
	engine *service.RuleEngine
}

// NewSignalsHandler constructs handler.
func NewSignalsHandler(engine *service.RuleEngine) *SignalsHandler {
	return &SignalsHandler{engine: engine}
}

// SubmitSignal POST /signals.
func (h *SignalsHandler) SubmitSignal(c *fiber.Ctx) error {
	var req dto.SignalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ChatReference) == "" {
		return apperrors.NewValidationError("chat_reference required", nil)
	}

	result := h.engine.Evaluate(domain.Signal{
		ChatReference: req.ChatReference,
		CustomerName:  req.CustomerName,
		Message:       req.Message,
		Analysis:      req.Analysis,
	})
	return c.JSON(fiber.Map{"data": result})
}

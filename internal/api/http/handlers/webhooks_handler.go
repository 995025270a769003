package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/notify"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util"
)

// WebhooksHandler manages notification endpoint registration.
type WebhooksHandler struct {
	notifier *notify.Notifier
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(notifier *notify.Notifier) *WebhooksHandler {
	return &WebhooksHandler{notifier: notifier}
}

// RegisterWebhook POST /webhooks.
func (h *WebhooksHandler) RegisterWebhook(c *fiber.Ctx) error {
	var req dto.RegisterWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return apperrors.NewValidationError("url must be absolute", map[string]any{"url": req.URL})
	}

	endpoint := h.notifier.Register(req.URL, req.Events)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": endpoint})
}

// ListWebhooks GET /webhooks.
func (h *WebhooksHandler) ListWebhooks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.notifier.Endpoints()})
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/escalation-engine/internal/api/dto"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/service"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util"
)

// AgentsHandler manages the agent registry endpoints.
type AgentsHandler struct {
	store *service.TicketStore
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(store *service.TicketStore) *AgentsHandler {
	return &AgentsHandler{store: store}
}

// RegisterAgent POST /agents.
func (h *AgentsHandler) RegisterAgent(c *fiber.Ctx) error {
	var req dto.RegisterAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	agent := h.store.RegisterAgent(service.AgentCreateInput{
		Name:    req.Name,
		Email:   req.Email,
		Skills:  req.Skills,
		MaxLoad: req.MaxLoad,
	})
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	return agentList(c, h.store.ListAgents())
}

// ListAvailableAgents GET /agents/available returns only agents eligible for
// assignment.
func (h *AgentsHandler) ListAvailableAgents(c *fiber.Ctx) error {
	return agentList(c, h.store.AvailableAgents())
}

func agentList(c *fiber.Ctx, agents []domain.Agent) error {
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAgent GET /agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	agent := h.store.GetAgent(c.Params("id"))
	if agent == nil {
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// UpdateAgentStatus PATCH /agents/:id/status.
func (h *AgentsHandler) UpdateAgentStatus(c *fiber.Ctx) error {
	var req dto.UpdateAgentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("invalid agent status", map[string]any{"status": req.Status})
	}

	agent := h.store.UpdateAgentStatus(c.Params("id"), req.Status)
	if agent == nil {
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		Email:       agent.Email,
		Status:      agent.Status,
		Skills:      agent.Skills,
		MaxLoad:     agent.MaxLoad,
		CurrentLoad: agent.CurrentLoad,
		Stats:       agent.Stats,
	}
}

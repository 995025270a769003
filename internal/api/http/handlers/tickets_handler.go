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

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	store *service.TicketStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(store *service.TicketStore) *TicketsHandler {
	return &TicketsHandler{store: store}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return apperrors.NewValidationError("reason required", nil)
	}

	ticket := h.store.CreateTicket(service.TicketCreateInput{
		ChatReference: req.ChatReference,
		CustomerName:  req.CustomerName,
		Reason:        req.Reason,
		Category:      req.Category,
		Priority:      req.Priority,
		Tags:          req.Tags,
		Context:       req.SignalContext,
		Actor:         "operator",
	})
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketFilter{}
	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.TicketPriority(raw)
		filter.Priority = &priority
	}
	if raw := c.Query("assigned_to"); raw != "" {
		filter.AssignedTo = &raw
	}
	if raw := c.Query("breached"); raw != "" {
		breached := raw == "true" || raw == "1"
		filter.Breached = &breached
	}

	tickets := h.store.ListTickets(filter)
	total := len(tickets)
	tickets = paginate(tickets, c.QueryInt("page", 1), c.QueryInt("page_size", 50))

	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "total": total})
}

// paginate slices one page out of the ordered result set.
func paginate(tickets []domain.Ticket, page, pageSize int) []domain.Ticket {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	start := (page - 1) * pageSize
	if start >= len(tickets) {
		return nil
	}
	end := start + pageSize
	if end > len(tickets) {
		end = len(tickets)
	}
	return tickets[start:end]
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket := h.store.GetTicket(c.Params("id"))
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var ticket *domain.Ticket
	if req.AgentID == "" {
		ticket = h.store.AutoAssignTicket(c.Params("id"))
	} else {
		ticket = h.store.AssignTicket(c.Params("id"), req.AgentID, "operator")
	}
	if ticket == nil {
		return apperrors.NewNotFound("ticket or agent", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// RecordResponse POST /tickets/:id/response.
func (h *TicketsHandler) RecordResponse(c *fiber.Ctx) error {
	var req dto.RecordResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket := h.store.RecordFirstResponse(c.Params("id"), req.AgentID)
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ResolveTicket POST /tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket := h.store.ResolveTicket(c.Params("id"), req.Resolution, req.AgentID)
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Satisfaction != nil && (*req.Satisfaction < 0 || *req.Satisfaction > 1) {
		return apperrors.NewValidationError("satisfaction must be within [0,1]", nil)
	}
	ticket := h.store.CloseTicket(c.Params("id"), req.Satisfaction)
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	var req dto.ReopenTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket := h.store.ReopenTicket(c.Params("id"), req.Reason)
	if ticket == nil {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

func slaResponse(sla domain.SLARecord) dto.SLAResponse {
	resp := dto.SLAResponse{
		ResponseDeadline:   sla.ResponseDeadline,
		ResolutionDeadline: sla.ResolutionDeadline,
		ResponseBreached:   sla.ResponseBreached,
		ResolutionBreached: sla.ResolutionBreached,
	}
	if sla.ResponseTime != nil {
		millis := sla.ResponseTime.Milliseconds()
		resp.ResponseMillis = &millis
	}
	if sla.ResolutionTime != nil {
		millis := sla.ResolutionTime.Milliseconds()
		resp.ResolutionMillis = &millis
	}
	return resp
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		ChatReference: ticket.ChatReference,
		CustomerName:  ticket.CustomerName,
		Reason:        ticket.Reason,
		Category:      ticket.Category,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		Tags:          ticket.Tags,
		AssignedTo:    ticket.AssignedTo,
		CreatedAt:     ticket.CreatedAt,
		SLA:           slaResponse(ticket.SLA),
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	history := make([]dto.HistoryEntryResponse, 0, len(ticket.History))
	for _, entry := range ticket.History {
		history = append(history, dto.HistoryEntryResponse{
			Action:    entry.Action,
			Actor:     entry.Actor,
			Timestamp: entry.Timestamp,
			Payload:   entry.Payload,
		})
	}
	return dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(ticket),
		AssignedAt:      ticket.AssignedAt,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		Resolution:      ticket.Resolution,
		History:         history,
	}
}

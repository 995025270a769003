package dto

import (
	"time"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ChatReference string                `json:"chat_reference"`
	CustomerName  string                `json:"customer_name"`
	Reason        string                `json:"reason"`
	Category      string                `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	Tags          []string              `json:"tags"`
	SignalContext map[string]any        `json:"signal_context"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// RecordResponseRequest payload.
type RecordResponseRequest struct {
	AgentID string `json:"agent_id"`
}

// ResolveTicketRequest payload.
type ResolveTicketRequest struct {
	Resolution string `json:"resolution"`
	AgentID    string `json:"agent_id"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Satisfaction *float64 `json:"satisfaction,omitempty"`
}

// ReopenTicketRequest payload.
type ReopenTicketRequest struct {
	Reason string `json:"reason"`
}

// SLAResponse mirrors the ticket's SLA record with millisecond durations.
type SLAResponse struct {
	ResponseDeadline   time.Time `json:"response_deadline"`
	ResolutionDeadline time.Time `json:"resolution_deadline"`
	ResponseBreached   bool      `json:"response_breached"`
	ResolutionBreached bool      `json:"resolution_breached"`
	ResponseMillis     *int64    `json:"response_millis,omitempty"`
	ResolutionMillis   *int64    `json:"resolution_millis,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                `json:"id"`
	ChatReference string                `json:"chat_reference"`
	CustomerName  string                `json:"customer_name"`
	Reason        string                `json:"reason"`
	Category      string                `json:"category,omitempty"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	Tags          []string              `json:"tags,omitempty"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	SLA           SLAResponse           `json:"sla"`
}

// TicketDetailResponse provides full ticket info including history.
type TicketDetailResponse struct {
	TicketSummary
	AssignedAt      *time.Time             `json:"assigned_at,omitempty"`
	FirstResponseAt *time.Time             `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time             `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time             `json:"closed_at,omitempty"`
	Resolution      string                 `json:"resolution,omitempty"`
	History         []HistoryEntryResponse `json:"history"`
}

// HistoryEntryResponse represents one transition record.
type HistoryEntryResponse struct {
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

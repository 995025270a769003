package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates SLA urgency tiers.
type TicketPriority string

const (
	TicketPriorityUrgent TicketPriority = "urgent"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityLow    TicketPriority = "low"
)

// Rank orders priorities for queue listing, urgent first.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityUrgent:
		return 0
	case TicketPriorityHigh:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the priority is a known tier.
func (p TicketPriority) Valid() bool {
	return p.Rank() < 4
}

// SLARecord tracks the deadlines computed at creation and the breach state
// observed against them. Deadlines are fixed once computed; reopening a
// ticket does not move them.
type SLARecord struct {
	ResponseDeadline   time.Time      `json:"response_deadline"`
	ResolutionDeadline time.Time      `json:"resolution_deadline"`
	ResponseBreached   bool           `json:"response_breached"`
	ResolutionBreached bool           `json:"resolution_breached"`
	ResponseTime       *time.Duration `json:"response_time,omitempty"`
	ResolutionTime     *time.Duration `json:"resolution_time,omitempty"`
}

// Breached reports whether either deadline has been breached.
func (s SLARecord) Breached() bool {
	return s.ResponseBreached || s.ResolutionBreached
}

// HistoryEntry is one append-only transition record. Entries are never
// rewritten once appended.
type HistoryEntry struct {
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Ticket is the aggregate for an escalated support signal.
type Ticket struct {
	ID              string         `json:"id"`
	ChatReference   string         `json:"chat_reference"`
	CustomerName    string         `json:"customer_name"`
	Reason          string         `json:"reason"`
	Category        string         `json:"category,omitempty"`
	Priority        TicketPriority `json:"priority"`
	Status          TicketStatus   `json:"status"`
	Tags            []string       `json:"tags,omitempty"`
	AssignedTo      *string        `json:"assigned_to,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	AssignedAt      *time.Time     `json:"assigned_at,omitempty"`
	FirstResponseAt *time.Time     `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
	Resolution      string         `json:"resolution,omitempty"`
	SLA             SLARecord      `json:"sla"`
	History         []HistoryEntry `json:"history"`
}

// ActiveForAgent reports whether the ticket counts toward its assignee's
// concurrent load.
func (t *Ticket) ActiveForAgent() bool {
	return t.Status == TicketStatusAssigned || t.Status == TicketStatusInProgress
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusAssigned, TicketStatusInProgress, TicketStatusResolved},
	TicketStatusAssigned:   {TicketStatusInProgress, TicketStatusResolved},
	TicketStatusInProgress: {TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusOpen},
	TicketStatusClosed:     {TicketStatusOpen},
}

// CanTransition reports whether moving from current to next is a legal
// lifecycle step. Resolved and closed tickets only leave their state via
// reopen.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

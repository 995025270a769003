package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/config"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/notify"
	"github.com/spec-kit/escalation-engine/internal/observability"
	"github.com/spec-kit/escalation-engine/internal/repository"
)

// ActorSystem marks engine-initiated history entries.
const ActorSystem = "system"

// TicketStore owns the ticket table and the agent registry behind a single
// mutex. Every lookup miss is a fail-soft nil return; callers check results
// instead of handling errors on the dispatch path. No I/O happens while the
// lock is held: notifications and snapshots run on the copies taken inside
// the critical section.
type TicketStore struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	registry *AgentRegistry

	breachCount int64

	notifier  *notify.Notifier
	snapshots repository.SnapshotRepository
	logger    *zap.Logger
	metrics   *observability.Metrics

	sla        config.SLAConfig
	assignment config.AssignmentConfig

	now func() time.Time
}

// TicketStoreDependencies bundles collaborators for the store.
type TicketStoreDependencies struct {
	Registry  *AgentRegistry
	Notifier  *notify.Notifier
	Snapshots repository.SnapshotRepository
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// NewTicketStore constructs the store.
func NewTicketStore(sla config.SLAConfig, assignment config.AssignmentConfig, deps TicketStoreDependencies) *TicketStore {
	registry := deps.Registry
	if registry == nil {
		registry = NewAgentRegistry()
	}
	return &TicketStore{
		tickets:    make(map[string]*domain.Ticket),
		registry:   registry,
		notifier:   deps.Notifier,
		snapshots:  deps.Snapshots,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		sla:        sla,
		assignment: assignment,
		now:        time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ChatReference string
	CustomerName  string
	Reason        string
	Category      string
	Priority      domain.TicketPriority
	Tags          []string
	Context       map[string]any
	Actor         string
}

// TicketFilter narrows ListTickets results.
type TicketFilter struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *string
	Breached   *bool
}

// CreateTicket opens a new ticket with SLA deadlines computed from the
// priority budget table. It always succeeds. When auto-assignment is enabled
// the best-fit agent is attached in the same critical section.
func (s *TicketStore) CreateTicket(input TicketCreateInput) *domain.Ticket {
	s.mu.Lock()

	now := s.now()
	priority := input.Priority
	if !priority.Valid() {
		priority = domain.TicketPriorityMedium
	}
	target := s.sla.Target(priority)
	actor := input.Actor
	if actor == "" {
		actor = ActorSystem
	}

	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		ChatReference: input.ChatReference,
		CustomerName:  input.CustomerName,
		Reason:        input.Reason,
		Category:      input.Category,
		Priority:      priority,
		Status:        domain.TicketStatusOpen,
		Tags:          append([]string{}, input.Tags...),
		CreatedAt:     now,
		SLA: domain.SLARecord{
			ResponseDeadline:   now.Add(time.Duration(target.ResponseMinutes) * time.Minute),
			ResolutionDeadline: now.Add(time.Duration(target.ResolutionMinutes) * time.Minute),
		},
	}
	appendHistory(ticket, "created", actor, input.Context, now)
	s.tickets[ticket.ID] = ticket

	var assignee *domain.Agent
	if s.assignment.AutoAssign {
		assignee = s.assignLocked(ticket, s.registry.bestFit(ticket.Category), ActorSystem, now)
	}

	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.notifier.Dispatch(notify.EventNewTicket, "ticket created for "+result.CustomerName, map[string]any{
		"ticket_id": result.ID,
		"priority":  string(result.Priority),
		"reason":    result.Reason,
	})
	if assignee != nil {
		s.dispatchAssigned(result.ID, assignee.ID)
	}
	s.persist()
	return result
}

// AssignTicket attaches an agent to the ticket. Returns nil when the ticket
// or agent is unknown, or when the ticket is already resolved or closed.
func (s *TicketStore) AssignTicket(id, agentID, actor string) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	agent := s.registry.get(agentID)
	if ticket == nil || agent == nil || ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
		s.mu.Unlock()
		return nil
	}
	if actor == "" {
		actor = ActorSystem
	}
	s.assignLocked(ticket, agent, actor, s.now())
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.dispatchAssigned(result.ID, agentID)
	s.persist()
	return result
}

// AutoAssignTicket runs best-fit selection for an existing ticket. Returns
// nil when the ticket is unknown or no agent can take it.
func (s *TicketStore) AutoAssignTicket(id string) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil || ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
		s.mu.Unlock()
		return nil
	}
	agent := s.assignLocked(ticket, s.registry.bestFit(ticket.Category), ActorSystem, s.now())
	if agent == nil {
		s.mu.Unlock()
		return nil
	}
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.dispatchAssigned(result.ID, agent.ID)
	s.persist()
	return result
}

// assignLocked moves the ticket onto the agent, maintaining load counters
// when the assignee changes. Caller holds the lock. Returns the agent
// actually attached, nil when none.
func (s *TicketStore) assignLocked(ticket *domain.Ticket, agent *domain.Agent, actor string, now time.Time) *domain.Agent {
	if agent == nil {
		return nil
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo == agent.ID {
		return agent
	}
	if ticket.AssignedTo != nil && ticket.ActiveForAgent() {
		s.registry.recordRelease(*ticket.AssignedTo)
	}
	agentID := agent.ID
	ticket.AssignedTo = &agentID
	ticket.AssignedAt = &now
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusAssigned
	}
	s.registry.recordAssignment(agentID)
	appendHistory(ticket, "assigned", actor, map[string]any{"agent_id": agentID}, now)
	return agent
}

// RecordFirstResponse marks the moment an agent first replied. Idempotent:
// a second call is a no-op returning the unchanged ticket. A response landing
// past the deadline flags the breach immediately; the monitor performing the
// same check asynchronously is equivalent, whichever runs first wins.
func (s *TicketStore) RecordFirstResponse(id, agentID string) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil {
		s.mu.Unlock()
		return nil
	}
	if ticket.FirstResponseAt != nil {
		result := cloneTicket(ticket)
		s.mu.Unlock()
		return result
	}
	if !domain.CanTransition(ticket.Status, domain.TicketStatusInProgress) {
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	ticket.FirstResponseAt = &now
	ticket.Status = domain.TicketStatusInProgress
	elapsed := now.Sub(ticket.CreatedAt)
	ticket.SLA.ResponseTime = &elapsed
	breached := false
	if now.After(ticket.SLA.ResponseDeadline) && !ticket.SLA.ResponseBreached {
		ticket.SLA.ResponseBreached = true
		s.breachCount++
		s.metrics.RecordBreach()
		breached = true
	}
	if agentID != "" {
		s.registry.recordResponseTime(agentID, elapsed.Seconds())
	}
	actor := agentID
	if actor == "" {
		actor = ActorSystem
	}
	appendHistory(ticket, "first_response", actor, nil, now)
	result := cloneTicket(ticket)
	s.mu.Unlock()

	if breached {
		s.dispatchBreach(result, "response")
	}
	s.persist()
	return result
}

// ResolveTicket closes out the work on a ticket. Returns nil for unknown
// ids. Resolving an unassigned ticket is allowed.
func (s *TicketStore) ResolveTicket(id, resolution, agentID string) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil || !domain.CanTransition(ticket.Status, domain.TicketStatusResolved) {
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	if ticket.AssignedTo != nil && ticket.ActiveForAgent() {
		s.registry.recordRelease(*ticket.AssignedTo)
	}
	ticket.ResolvedAt = &now
	ticket.Resolution = resolution
	ticket.Status = domain.TicketStatusResolved
	elapsed := now.Sub(ticket.CreatedAt)
	ticket.SLA.ResolutionTime = &elapsed
	breached := false
	if now.After(ticket.SLA.ResolutionDeadline) && !ticket.SLA.ResolutionBreached {
		ticket.SLA.ResolutionBreached = true
		s.breachCount++
		s.metrics.RecordBreach()
		breached = true
	}
	if agentID != "" {
		s.registry.recordResolution(agentID, elapsed.Seconds())
	}
	actor := agentID
	if actor == "" {
		actor = ActorSystem
	}
	appendHistory(ticket, "resolved", actor, map[string]any{"resolution": resolution}, now)
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.notifier.Dispatch(notify.EventTicketResolved, "ticket resolved", map[string]any{
		"ticket_id":  result.ID,
		"resolution": resolution,
	})
	if breached {
		s.dispatchBreach(result, "resolution")
	}
	s.persist()
	return result
}

// CloseTicket marks a resolved ticket closed. An optional satisfaction score
// in [0,1] feeds the assignee's running satisfaction average.
func (s *TicketStore) CloseTicket(id string, satisfaction *float64) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil || !domain.CanTransition(ticket.Status, domain.TicketStatusClosed) {
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	ticket.ClosedAt = &now
	ticket.Status = domain.TicketStatusClosed
	if satisfaction != nil && ticket.AssignedTo != nil {
		s.registry.recordSatisfaction(*ticket.AssignedTo, *satisfaction)
	}
	appendHistory(ticket, "closed", ActorSystem, nil, now)
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.notifier.Dispatch(notify.EventTicketClosed, "ticket closed", map[string]any{"ticket_id": result.ID})
	s.persist()
	return result
}

// ReopenTicket returns a resolved or closed ticket to open. The original SLA
// deadlines are preserved, not recomputed from the reopen time; breach flags
// already set stay set so the breach counter is never double-incremented.
func (s *TicketStore) ReopenTicket(id, reason string) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil || !domain.CanTransition(ticket.Status, domain.TicketStatusOpen) {
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	ticket.ResolvedAt = nil
	ticket.ClosedAt = nil
	ticket.Resolution = ""
	ticket.SLA.ResolutionTime = nil
	ticket.Status = domain.TicketStatusOpen
	appendHistory(ticket, "reopened", ActorSystem, map[string]any{"reason": reason}, now)
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.notifier.Dispatch(notify.EventTicketReopened, "ticket reopened", map[string]any{
		"ticket_id": result.ID,
		"reason":    reason,
	})
	s.persist()
	return result
}

// AddTags appends labels to the ticket's tag set. Returns nil for unknown ids.
func (s *TicketStore) AddTags(id string, tags []string, actor string) *domain.Ticket {
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil {
		s.mu.Unlock()
		return nil
	}
	for _, tag := range tags {
		if !containsTag(ticket.Tags, tag) {
			ticket.Tags = append(ticket.Tags, tag)
		}
	}
	appendHistory(ticket, "tagged", actor, map[string]any{"tags": tags}, s.now())
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.persist()
	return result
}

// SetPriority overrides the ticket's priority tier. The SLA deadlines keep
// the budgets computed at creation.
func (s *TicketStore) SetPriority(id string, priority domain.TicketPriority, actor string) *domain.Ticket {
	if !priority.Valid() {
		return nil
	}
	s.mu.Lock()
	ticket := s.tickets[id]
	if ticket == nil {
		s.mu.Unlock()
		return nil
	}
	old := ticket.Priority
	ticket.Priority = priority
	appendHistory(ticket, "priority_changed", actor, map[string]any{
		"old_priority": string(old),
		"new_priority": string(priority),
	}, s.now())
	result := cloneTicket(ticket)
	s.mu.Unlock()

	s.persist()
	return result
}

// GetTicket returns a copy of the ticket, nil when unknown.
func (s *TicketStore) GetTicket(id string) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket := s.tickets[id]
	if ticket == nil {
		return nil
	}
	return cloneTicket(ticket)
}

// ListTickets returns matching tickets ordered by priority tier (urgent
// first) then creation time descending.
func (s *TicketStore) ListTickets(filter TicketFilter) []domain.Ticket {
	s.mu.Lock()
	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Breached != nil && ticket.SLA.Breached() != *filter.Breached {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	s.mu.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := result[i].Priority.Rank(), result[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// BreachCount returns the global count of breach detections.
func (s *TicketStore) BreachCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breachCount
}

// RegisterAgent adds an agent to the registry.
func (s *TicketStore) RegisterAgent(input AgentCreateInput) *domain.Agent {
	s.mu.Lock()
	agent := s.registry.register(input, s.assignment.DefaultMaxLoad)
	result := cloneAgent(agent)
	s.mu.Unlock()

	s.persist()
	return result
}

// UpdateAgentStatus changes an agent's availability. Returns nil for unknown
// ids or invalid states.
func (s *TicketStore) UpdateAgentStatus(id string, status domain.AgentStatus) *domain.Agent {
	if !status.Valid() {
		return nil
	}
	s.mu.Lock()
	agent := s.registry.get(id)
	if agent == nil {
		s.mu.Unlock()
		return nil
	}
	agent.Status = status
	result := cloneAgent(agent)
	s.mu.Unlock()

	s.persist()
	return result
}

// GetAgent returns a copy of the agent record, nil when unknown.
func (s *TicketStore) GetAgent(id string) *domain.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	agent := s.registry.get(id)
	if agent == nil {
		return nil
	}
	return cloneAgent(agent)
}

// ListAgents returns all agents in registration order.
func (s *TicketStore) ListAgents() []domain.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := s.registry.all()
	result := make([]domain.Agent, 0, len(agents))
	for _, agent := range agents {
		result = append(result, *cloneAgent(agent))
	}
	return result
}

// AvailableAgents returns agents able to take new work.
func (s *TicketStore) AvailableAgents() []domain.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := s.registry.available()
	result := make([]domain.Agent, 0, len(agents))
	for _, agent := range agents {
		result = append(result, *cloneAgent(agent))
	}
	return result
}

// BreachEvent reports one deadline breach detected by a scan.
type BreachEvent struct {
	TicketID      string
	ChatReference string
	Priority      domain.TicketPriority
	Type          string // "response" or "resolution"
}

// ScanBreaches walks tickets still in flight and flags passed deadlines.
// Each flag fires at most once per ticket per deadline type; the flag gates
// both the counter and re-notification. Load counters are reconciled in the
// same pass. Callers dispatch notifications for the returned events.
func (s *TicketStore) ScanBreaches() []BreachEvent {
	s.mu.Lock()
	now := s.now()
	var events []BreachEvent
	for _, ticket := range s.tickets {
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			continue
		}
		if ticket.FirstResponseAt == nil && now.After(ticket.SLA.ResponseDeadline) && !ticket.SLA.ResponseBreached {
			ticket.SLA.ResponseBreached = true
			s.breachCount++
			s.metrics.RecordBreach()
			appendHistory(ticket, "sla_breach", ActorSystem, map[string]any{"type": "response"}, now)
			events = append(events, BreachEvent{
				TicketID:      ticket.ID,
				ChatReference: ticket.ChatReference,
				Priority:      ticket.Priority,
				Type:          "response",
			})
		}
		if ticket.ResolvedAt == nil && now.After(ticket.SLA.ResolutionDeadline) && !ticket.SLA.ResolutionBreached {
			ticket.SLA.ResolutionBreached = true
			s.breachCount++
			s.metrics.RecordBreach()
			appendHistory(ticket, "sla_breach", ActorSystem, map[string]any{"type": "resolution"}, now)
			events = append(events, BreachEvent{
				TicketID:      ticket.ID,
				ChatReference: ticket.ChatReference,
				Priority:      ticket.Priority,
				Type:          "resolution",
			})
		}
	}
	s.registry.reconcile(s.tickets)
	s.mu.Unlock()

	if len(events) > 0 {
		s.persist()
	}
	return events
}

// DispatchBreach emits the sla_breach notification for a scan event.
func (s *TicketStore) DispatchBreach(event BreachEvent) {
	s.notifier.Dispatch(notify.EventSLABreach, "SLA "+event.Type+" deadline breached", map[string]any{
		"ticket_id": event.TicketID,
		"type":      event.Type,
		"priority":  string(event.Priority),
	})
}

// Restore seeds the store from persisted records. Used at boot only, before
// any concurrent access.
func (s *TicketStore) Restore(tickets []domain.Ticket, agents []domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range agents {
		s.registry.restore(agent)
	}
	for _, ticket := range tickets {
		record := ticket
		s.tickets[record.ID] = &record
	}
	s.registry.reconcile(s.tickets)
}

// Snapshot returns copies of all tickets and agents for persistence.
func (s *TicketStore) Snapshot() ([]domain.Ticket, []domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *TicketStore) snapshotLocked() ([]domain.Ticket, []domain.Agent) {
	tickets := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		tickets = append(tickets, *cloneTicket(ticket))
	}
	agents := s.registry.all()
	agentCopies := make([]domain.Agent, 0, len(agents))
	for _, agent := range agents {
		agentCopies = append(agentCopies, *cloneAgent(agent))
	}
	return tickets, agentCopies
}

// persist writes a best-effort snapshot on a detached goroutine. Failures
// are logged; the in-memory state stays authoritative.
func (s *TicketStore) persist() {
	if s.snapshots == nil {
		return
	}
	tickets, agents := s.Snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.snapshots.SaveTickets(ctx, tickets); err != nil {
			s.logger.Error("save ticket snapshot", zap.Error(err))
		}
		if err := s.snapshots.SaveAgents(ctx, agents); err != nil {
			s.logger.Error("save agent snapshot", zap.Error(err))
		}
	}()
}

func (s *TicketStore) dispatchAssigned(ticketID, agentID string) {
	s.notifier.Dispatch(notify.EventTicketAssigned, "ticket assigned", map[string]any{
		"ticket_id": ticketID,
		"agent_id":  agentID,
	})
}

func (s *TicketStore) dispatchBreach(ticket *domain.Ticket, breachType string) {
	s.DispatchBreach(BreachEvent{
		TicketID:      ticket.ID,
		ChatReference: ticket.ChatReference,
		Priority:      ticket.Priority,
		Type:          breachType,
	})
}

func appendHistory(ticket *domain.Ticket, action, actor string, payload map[string]any, now time.Time) {
	ticket.History = append(ticket.History, domain.HistoryEntry{
		Action:    action,
		Actor:     actor,
		Timestamp: now,
		Payload:   payload,
	})
}

func cloneTicket(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	clone.Tags = append([]string{}, ticket.Tags...)
	clone.History = append([]domain.HistoryEntry{}, ticket.History...)
	if ticket.AssignedTo != nil {
		v := *ticket.AssignedTo
		clone.AssignedTo = &v
	}
	clone.AssignedAt = cloneTime(ticket.AssignedAt)
	clone.FirstResponseAt = cloneTime(ticket.FirstResponseAt)
	clone.ResolvedAt = cloneTime(ticket.ResolvedAt)
	clone.ClosedAt = cloneTime(ticket.ClosedAt)
	if ticket.SLA.ResponseTime != nil {
		v := *ticket.SLA.ResponseTime
		clone.SLA.ResponseTime = &v
	}
	if ticket.SLA.ResolutionTime != nil {
		v := *ticket.SLA.ResolutionTime
		clone.SLA.ResolutionTime = &v
	}
	return &clone
}

func cloneAgent(agent *domain.Agent) *domain.Agent {
	clone := *agent
	clone.Skills = append([]string{}, agent.Skills...)
	if agent.Stats.SatisfactionScore != nil {
		v := *agent.Stats.SatisfactionScore
		clone.Stats.SatisfactionScore = &v
	}
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func containsTag(tags []string, tag string) bool {
	for _, existing := range tags {
		if existing == tag {
			return true
		}
	}
	return false
}

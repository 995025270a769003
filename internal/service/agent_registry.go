package service

import (
	"github.com/google/uuid"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// Scoring weights for best-fit assignment. Load headroom dominates so no
// agent starves, skill match rewards specialization, satisfaction breaks the
// rest.
const (
	loadWeight         = 50.0
	skillWeight        = 30.0
	satisfactionWeight = 20.0
)

// AgentRegistry holds agent records and answers availability and best-fit
// queries. It carries no lock of its own: the ticket store owns the mutex and
// every call happens inside that critical section, which keeps breach scans
// and assignment decisions atomic with respect to each other.
type AgentRegistry struct {
	agents map[string]*domain.Agent
	order  []string
}

// NewAgentRegistry creates an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]*domain.Agent)}
}

// AgentCreateInput describes agent registration payload.
type AgentCreateInput struct {
	Name    string
	Email   string
	Skills  []string
	MaxLoad int
}

func (r *AgentRegistry) register(input AgentCreateInput, defaultMaxLoad int) *domain.Agent {
	maxLoad := input.MaxLoad
	if maxLoad <= 0 {
		maxLoad = defaultMaxLoad
	}
	agent := &domain.Agent{
		ID:      uuid.NewString(),
		Name:    input.Name,
		Email:   input.Email,
		Status:  domain.AgentStatusAvailable,
		Skills:  input.Skills,
		MaxLoad: maxLoad,
	}
	r.agents[agent.ID] = agent
	r.order = append(r.order, agent.ID)
	return agent
}

// restore reinserts a persisted agent, preserving snapshot order.
func (r *AgentRegistry) restore(agent domain.Agent) {
	record := agent
	r.agents[record.ID] = &record
	r.order = append(r.order, record.ID)
}

func (r *AgentRegistry) get(id string) *domain.Agent {
	return r.agents[id]
}

func (r *AgentRegistry) all() []*domain.Agent {
	result := make([]*domain.Agent, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.agents[id])
	}
	return result
}

// available returns agents accepting work: status available and headroom
// under their max concurrent load.
func (r *AgentRegistry) available() []*domain.Agent {
	var result []*domain.Agent
	for _, id := range r.order {
		agent := r.agents[id]
		if agent.Status == domain.AgentStatusAvailable && agent.CurrentLoad < agent.MaxLoad {
			result = append(result, agent)
		}
	}
	return result
}

// bestFit scores every available agent and returns the winner, or nil when
// nobody can take the ticket. Ties keep the earlier-registered agent.
func (r *AgentRegistry) bestFit(category string) *domain.Agent {
	var best *domain.Agent
	bestScore := 0.0
	for _, agent := range r.available() {
		score := scoreAgent(agent, category)
		if best == nil || score > bestScore {
			best = agent
			bestScore = score
		}
	}
	return best
}

func scoreAgent(agent *domain.Agent, category string) float64 {
	headroom := 1.0 - float64(agent.CurrentLoad)/float64(agent.MaxLoad)
	score := headroom * loadWeight
	if agent.HasSkill(category) {
		score += skillWeight
	}
	score += agent.Satisfaction() * satisfactionWeight
	return score
}

// recordAssignment bumps the agent's load counter.
func (r *AgentRegistry) recordAssignment(id string) {
	if agent := r.agents[id]; agent != nil {
		agent.CurrentLoad++
	}
}

// recordRelease drops the agent's load counter when an active ticket leaves
// the assigned/in_progress states.
func (r *AgentRegistry) recordRelease(id string) {
	if agent := r.agents[id]; agent != nil && agent.CurrentLoad > 0 {
		agent.CurrentLoad--
	}
}

// reconcile recomputes every load counter from ticket state. Run
// periodically so counter drift cannot outlive one monitor interval.
func (r *AgentRegistry) reconcile(tickets map[string]*domain.Ticket) {
	for _, agent := range r.agents {
		agent.CurrentLoad = 0
	}
	for _, ticket := range tickets {
		if ticket.AssignedTo == nil || !ticket.ActiveForAgent() {
			continue
		}
		if agent := r.agents[*ticket.AssignedTo]; agent != nil {
			agent.CurrentLoad++
		}
	}
}

func (r *AgentRegistry) recordResponseTime(id string, seconds float64) {
	agent := r.agents[id]
	if agent == nil {
		return
	}
	agent.Stats.Responses++
	n := float64(agent.Stats.Responses)
	agent.Stats.AvgResponseSec += (seconds - agent.Stats.AvgResponseSec) / n
}

func (r *AgentRegistry) recordResolution(id string, seconds float64) {
	agent := r.agents[id]
	if agent == nil {
		return
	}
	agent.Stats.TicketsHandled++
	n := float64(agent.Stats.TicketsHandled)
	agent.Stats.AvgResolutionSec += (seconds - agent.Stats.AvgResolutionSec) / n
}

func (r *AgentRegistry) recordSatisfaction(id string, score float64) {
	agent := r.agents[id]
	if agent == nil {
		return
	}
	agent.Stats.Ratings++
	prev := 0.0
	if agent.Stats.SatisfactionScore != nil {
		prev = *agent.Stats.SatisfactionScore
	}
	updated := prev + (score-prev)/float64(agent.Stats.Ratings)
	agent.Stats.SatisfactionScore = &updated
}

package domain

// AgentStatus enumerates agent availability states.
type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "available"
	AgentStatusBusy      AgentStatus = "busy"
	AgentStatusAway      AgentStatus = "away"
	AgentStatusOffline   AgentStatus = "offline"
)

// Valid reports whether the status is a known state.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusAvailable, AgentStatusBusy, AgentStatusAway, AgentStatusOffline:
		return true
	default:
		return false
	}
}

// AgentStats carries running performance figures for an agent. Responses and
// Ratings count the samples behind the corresponding averages.
type AgentStats struct {
	TicketsHandled    int      `json:"tickets_handled"`
	Responses         int      `json:"responses"`
	Ratings           int      `json:"ratings"`
	AvgResponseSec    float64  `json:"avg_response_seconds"`
	AvgResolutionSec  float64  `json:"avg_resolution_seconds"`
	SatisfactionScore *float64 `json:"satisfaction_score,omitempty"`
}

// Agent is a registered human handler of tickets. Agents are never deleted;
// an agent leaving the pool goes offline instead.
type Agent struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	Status      AgentStatus `json:"status"`
	Skills      []string    `json:"skills,omitempty"`
	MaxLoad     int         `json:"max_load"`
	CurrentLoad int         `json:"current_load"`
	Stats       AgentStats  `json:"stats"`
}

// HasSkill reports whether the agent's skill set contains the category.
func (a *Agent) HasSkill(category string) bool {
	if category == "" {
		return false
	}
	for _, skill := range a.Skills {
		if skill == category {
			return true
		}
	}
	return false
}

// Satisfaction returns the running satisfaction average, defaulting to 0.5
// when no feedback has been recorded yet.
func (a *Agent) Satisfaction() float64 {
	if a.Stats.SatisfactionScore == nil {
		return 0.5
	}
	return *a.Stats.SatisfactionScore
}

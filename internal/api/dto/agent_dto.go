package dto

import "github.com/spec-kit/escalation-engine/internal/domain"

// RegisterAgentRequest payload.
type RegisterAgentRequest struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Skills  []string `json:"skills"`
	MaxLoad int      `json:"max_load"`
}

// UpdateAgentStatusRequest payload.
type UpdateAgentStatusRequest struct {
	Status domain.AgentStatus `json:"status"`
}

// AgentResponse response.
type AgentResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email,omitempty"`
	Status      domain.AgentStatus `json:"status"`
	Skills      []string           `json:"skills,omitempty"`
	MaxLoad     int                `json:"max_load"`
	CurrentLoad int                `json:"current_load"`
	Stats       domain.AgentStats  `json:"stats"`
}

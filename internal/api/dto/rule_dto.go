package dto

import "github.com/spec-kit/escalation-engine/internal/domain"

// CreateRuleRequest payload.
type CreateRuleRequest struct {
	Name       string             `json:"name"`
	Priority   int                `json:"priority"`
	Conditions []domain.Condition `json:"conditions"`
	Actions    []domain.Action    `json:"actions"`
	Enabled    *bool              `json:"enabled,omitempty"`
}

// UpdateRuleRequest payload.
type UpdateRuleRequest struct {
	Enabled  *bool `json:"enabled,omitempty"`
	Priority *int  `json:"priority,omitempty"`
}

// SignalRequest is an inbound signal submitted for rule evaluation.
type SignalRequest struct {
	ChatReference string          `json:"chat_reference"`
	CustomerName  string          `json:"customer_name"`
	Message       string          `json:"message"`
	Analysis      domain.Analysis `json:"analysis"`
}

// RegisterWebhookRequest payload.
type RegisterWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// LoginRequest payload.
type LoginRequest struct {
	Password string `json:"password"`
}

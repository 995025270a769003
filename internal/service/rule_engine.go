package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/notify"
	"github.com/spec-kit/escalation-engine/internal/repository"
)

// RuleEngine evaluates declarative escalation rules against inbound signals.
// Rules are evaluated in descending priority order; all conditions of a rule
// must match for its actions to fire; evaluation stops at the first fully
// matching rule so every signal yields a single deterministic outcome.
type RuleEngine struct {
	mu    sync.RWMutex
	rules map[string]*domain.Rule

	store     *TicketStore
	notifier  *notify.Notifier
	snapshots repository.SnapshotRepository
	logger    *zap.Logger

	now func() time.Time
}

// RuleEngineDependencies bundles collaborators for the engine.
type RuleEngineDependencies struct {
	Store     *TicketStore
	Notifier  *notify.Notifier
	Snapshots repository.SnapshotRepository
	Logger    *zap.Logger
}

// NewRuleEngine constructs the engine with an empty rule table.
func NewRuleEngine(deps RuleEngineDependencies) *RuleEngine {
	return &RuleEngine{
		rules:     make(map[string]*domain.Rule),
		store:     deps.Store,
		notifier:  deps.Notifier,
		snapshots: deps.Snapshots,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// RuleCreateInput describes rule registration payload.
type RuleCreateInput struct {
	Name       string
	Priority   int
	Conditions []domain.Condition
	Actions    []domain.Action
	Enabled    *bool
}

// AddRule registers a rule. Rules default to enabled.
func (e *RuleEngine) AddRule(input RuleCreateInput) domain.Rule {
	rule := &domain.Rule{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Priority:   input.Priority,
		Conditions: input.Conditions,
		Actions:    input.Actions,
		Enabled:    true,
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	e.persist()
	return *rule
}

// UpdateRule toggles or reprioritizes an existing rule. Returns nil for
// unknown ids.
func (e *RuleEngine) UpdateRule(id string, enabled *bool, priority *int) *domain.Rule {
	e.mu.Lock()
	rule := e.rules[id]
	if rule == nil {
		e.mu.Unlock()
		return nil
	}
	if enabled != nil {
		rule.Enabled = *enabled
	}
	if priority != nil {
		rule.Priority = *priority
	}
	result := *rule
	e.mu.Unlock()

	e.persist()
	return &result
}

// RemoveRule drops a rule from the table. Returns false for unknown ids.
func (e *RuleEngine) RemoveRule(id string) bool {
	e.mu.Lock()
	_, ok := e.rules[id]
	delete(e.rules, id)
	e.mu.Unlock()

	if ok {
		e.persist()
	}
	return ok
}

// ListRules returns rules ordered by descending priority.
func (e *RuleEngine) ListRules() []domain.Rule {
	e.mu.RLock()
	result := make([]domain.Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		result = append(result, *rule)
	}
	e.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority > result[j].Priority
	})
	return result
}

// ReplaceRules swaps the whole rule table, used for boot-time restore and
// for overriding the default set.
func (e *RuleEngine) ReplaceRules(rules []domain.Rule) {
	table := make(map[string]*domain.Rule, len(rules))
	for _, rule := range rules {
		record := rule
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		table[record.ID] = &record
	}
	e.mu.Lock()
	e.rules = table
	e.mu.Unlock()
}

// EvaluationResult reports the outcome of evaluating one signal.
type EvaluationResult struct {
	Matched  bool           `json:"matched"`
	RuleID   string         `json:"rule_id,omitempty"`
	RuleName string         `json:"rule_name,omitempty"`
	Ticket   *domain.Ticket `json:"ticket,omitempty"`
}

// Evaluate runs the signal through the rule table and executes the actions
// of the first fully matching rule. A signal matching no rule produces no
// ticket.
func (e *RuleEngine) Evaluate(signal domain.Signal) EvaluationResult {
	for _, rule := range e.ListRules() {
		if !rule.Enabled {
			continue
		}
		if !e.matchesAll(rule.Conditions, signal) {
			continue
		}
		e.logger.Info("rule matched",
			zap.String("rule", rule.Name),
			zap.String("chat_reference", signal.ChatReference))
		ticket := e.execute(rule, signal)
		return EvaluationResult{Matched: true, RuleID: rule.ID, RuleName: rule.Name, Ticket: ticket}
	}
	return EvaluationResult{}
}

func (e *RuleEngine) matchesAll(conditions []domain.Condition, signal domain.Signal) bool {
	for _, condition := range conditions {
		if !e.matches(condition, signal) {
			return false
		}
	}
	return true
}

// matches evaluates one predicate. Unknown condition kinds never match
// rather than failing configuration loading.
func (e *RuleEngine) matches(condition domain.Condition, signal domain.Signal) bool {
	switch condition.Kind {
	case domain.ConditionSentimentEquals:
		return signal.Analysis.Sentiment == condition.Value
	case domain.ConditionIntentEquals:
		return signal.Analysis.Intent == condition.Value
	case domain.ConditionUrgencyEquals:
		return signal.Analysis.Urgency == condition.Value
	case domain.ConditionConfidenceBelow:
		return signal.Analysis.Confidence < condition.Threshold
	case domain.ConditionKeywordContains:
		return strings.Contains(strings.ToLower(signal.Message), strings.ToLower(condition.Value))
	case domain.ConditionTimeOfDayRange:
		return hourInRange(e.now().Hour(), condition.StartHour, condition.EndHour)
	default:
		return false
	}
}

// hourInRange matches hour against [start, end), wrapping past midnight when
// start > end: a 20-8 window spans 20:00-23:59 and 00:00-07:59.
func hourInRange(hour, start, end int) bool {
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// execute runs the rule's actions in order. Escalate creates the ticket;
// the remaining actions operate on it when present.
func (e *RuleEngine) execute(rule domain.Rule, signal domain.Signal) *domain.Ticket {
	var ticket *domain.Ticket
	for _, action := range rule.Actions {
		switch action.Kind {
		case domain.ActionEscalate:
			reason := action.Reason
			if reason == "" {
				reason = rule.Name
			}
			ticket = e.store.CreateTicket(TicketCreateInput{
				ChatReference: signal.ChatReference,
				CustomerName:  signal.CustomerName,
				Reason:        reason,
				Category:      signal.Analysis.Intent,
				Priority:      action.Priority,
				Context: map[string]any{
					"intent":     signal.Analysis.Intent,
					"sentiment":  signal.Analysis.Sentiment,
					"urgency":    signal.Analysis.Urgency,
					"confidence": signal.Analysis.Confidence,
				},
				Actor: "rule:" + rule.Name,
			})
		case domain.ActionAssign:
			if ticket == nil {
				continue
			}
			if action.AgentID != "" {
				e.store.AssignTicket(ticket.ID, action.AgentID, "rule:"+rule.Name)
			} else {
				e.store.AutoAssignTicket(ticket.ID)
			}
			ticket = e.store.GetTicket(ticket.ID)
		case domain.ActionTag:
			if ticket == nil {
				continue
			}
			ticket = e.store.AddTags(ticket.ID, action.Tags, "rule:"+rule.Name)
		case domain.ActionNotify:
			message := action.Message
			if message == "" {
				message = "rule " + rule.Name + " triggered"
			}
			data := map[string]any{
				"rule":           rule.Name,
				"chat_reference": signal.ChatReference,
			}
			if ticket != nil {
				data["ticket_id"] = ticket.ID
			}
			e.notifier.Dispatch(notify.EventRuleTriggered, message, data)
		case domain.ActionSetPriority:
			if ticket == nil || !action.Priority.Valid() {
				continue
			}
			ticket = e.store.SetPriority(ticket.ID, action.Priority, "rule:"+rule.Name)
		}
	}
	return ticket
}

// persist writes the rule table through the snapshot collaborator,
// best-effort.
func (e *RuleEngine) persist() {
	if e.snapshots == nil {
		return
	}
	rules := e.ListRules()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.snapshots.SaveRules(ctx, rules); err != nil {
			e.logger.Error("save rule snapshot", zap.Error(err))
		}
	}()
}

// DefaultRules returns the baseline rule set shipped as configuration. It is
// installed only when no persisted rules exist and can be replaced wholesale
// at runtime.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		{
			ID:       uuid.NewString(),
			Name:     "urgent complaint",
			Priority: 100,
			Conditions: []domain.Condition{
				{Kind: domain.ConditionIntentEquals, Value: "complaint"},
				{Kind: domain.ConditionUrgencyEquals, Value: "high"},
			},
			Actions: []domain.Action{
				{Kind: domain.ActionEscalate, Reason: "urgent customer complaint", Priority: domain.TicketPriorityUrgent},
				{Kind: domain.ActionAssign},
				{Kind: domain.ActionNotify, Message: "urgent complaint escalated"},
			},
			Enabled: true,
		},
		{
			ID:       uuid.NewString(),
			Name:     "strongly negative sentiment",
			Priority: 80,
			Conditions: []domain.Condition{
				{Kind: domain.ConditionSentimentEquals, Value: "negative"},
			},
			Actions: []domain.Action{
				{Kind: domain.ActionEscalate, Reason: "strongly negative sentiment", Priority: domain.TicketPriorityHigh},
				{Kind: domain.ActionTag, Tags: []string{"sentiment"}},
			},
			Enabled: true,
		},
		{
			ID:       uuid.NewString(),
			Name:     "low confidence handoff",
			Priority: 60,
			Conditions: []domain.Condition{
				{Kind: domain.ConditionConfidenceBelow, Threshold: 0.4},
				{Kind: domain.ConditionKeywordContains, Value: "human"},
			},
			Actions: []domain.Action{
				{Kind: domain.ActionEscalate, Reason: "customer asked for a human", Priority: domain.TicketPriorityMedium},
				{Kind: domain.ActionAssign},
			},
			Enabled: true,
		},
		{
			ID:       uuid.NewString(),
			Name:     "outside business hours",
			Priority: 50,
			Conditions: []domain.Condition{
				{Kind: domain.ConditionIntentEquals, Value: "support_request"},
				{Kind: domain.ConditionTimeOfDayRange, StartHour: 20, EndHour: 8},
			},
			Actions: []domain.Action{
				{Kind: domain.ActionEscalate, Reason: "after-hours support request", Priority: domain.TicketPriorityMedium},
				{Kind: domain.ActionTag, Tags: []string{"after-hours"}},
				{Kind: domain.ActionNotify, Message: "after-hours request queued"},
			},
			Enabled: true,
		},
	}
}

package domain

// Analysis is the opaque conversational analysis attached to an inbound
// signal. It is produced upstream; the engine only matches against it.
type Analysis struct {
	Intent     string  `json:"intent"`
	Sentiment  string  `json:"sentiment"`
	Urgency    string  `json:"urgency"`
	Confidence float64 `json:"confidence"`
}

// Signal is an inbound support signal submitted for rule evaluation.
type Signal struct {
	ChatReference string   `json:"chat_reference"`
	CustomerName  string   `json:"customer_name"`
	Message       string   `json:"message"`
	Analysis      Analysis `json:"analysis"`
}

// ConditionKind is the closed set of rule predicate types. Matching is
// exhaustive per kind; a kind outside this set never matches.
type ConditionKind string

const (
	ConditionSentimentEquals ConditionKind = "sentiment_equals"
	ConditionIntentEquals    ConditionKind = "intent_equals"
	ConditionUrgencyEquals   ConditionKind = "urgency_equals"
	ConditionConfidenceBelow ConditionKind = "confidence_below"
	ConditionKeywordContains ConditionKind = "keyword_contains"
	ConditionTimeOfDayRange  ConditionKind = "time_of_day_range"
)

// Condition is one typed predicate in a rule. The parameter fields used
// depend on the kind: Value for the equality and keyword kinds, Threshold for
// confidence_below, StartHour/EndHour for time_of_day_range.
type Condition struct {
	Kind      ConditionKind `json:"kind"`
	Value     string        `json:"value,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	StartHour int           `json:"start_hour,omitempty"`
	EndHour   int           `json:"end_hour,omitempty"`
}

// ActionKind is the closed set of rule action types.
type ActionKind string

const (
	ActionEscalate    ActionKind = "escalate"
	ActionAssign      ActionKind = "assign"
	ActionTag         ActionKind = "tag"
	ActionNotify      ActionKind = "notify"
	ActionSetPriority ActionKind = "set_priority"
)

// Action is one step executed when a rule fires. Reason and Priority apply to
// escalate/set_priority, AgentID to assign, Tags to tag, Message to notify.
type Action struct {
	Kind     ActionKind     `json:"kind"`
	Reason   string         `json:"reason,omitempty"`
	Priority TicketPriority `json:"priority,omitempty"`
	AgentID  string         `json:"agent_id,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// Rule is one declarative escalation rule. Rules are configuration data:
// they are evaluated against signals transiently and hold no ticket state.
type Rule struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Priority   int         `json:"priority"`
	Conditions []Condition `json:"conditions"`
	Actions    []Action    `json:"actions"`
	Enabled    bool        `json:"enabled"`
}

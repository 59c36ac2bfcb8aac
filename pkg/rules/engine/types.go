package engine

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TriggerType identifies the event category that makes a rule eligible
// for evaluation.
type TriggerType string

const (
	TriggerItemCreated      TriggerType = "item_created"
	TriggerItemUpdated      TriggerType = "item_updated"
	TriggerItemCompleted    TriggerType = "item_completed"
	TriggerItemOverdue      TriggerType = "item_overdue"
	TriggerProjectStarted   TriggerType = "project_started"
	TriggerMilestoneReached TriggerType = "milestone_reached"
	TriggerDailySchedule    TriggerType = "daily_schedule"
)

// KnownTriggerTypes lists every trigger type the dispatcher matches on.
var KnownTriggerTypes = []TriggerType{
	TriggerItemCreated,
	TriggerItemUpdated,
	TriggerItemCompleted,
	TriggerItemOverdue,
	TriggerProjectStarted,
	TriggerMilestoneReached,
	TriggerDailySchedule,
}

// Trigger binds a rule to an event category. Parameters are advisory: they
// are not matched on during dispatch, only forwarded for an action's use.
// A Trigger is immutable once its rule has been registered.
type Trigger struct {
	Type       TriggerType      `yaml:"type"`
	Parameters map[string]Value `yaml:"parameters,omitempty"`
}

// Operator identifies a condition comparison.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIsEmpty     Operator = "is_empty"
	OperatorIsNotEmpty  Operator = "is_not_empty"
)

// Condition is a single predicate over a dotted-path field of the event
// context. A rule's condition list is AND-combined; an empty list is
// vacuously true.
type Condition struct {
	Field    string   `yaml:"field"`
	Operator Operator `yaml:"operator"`
	Value    Value    `yaml:"value,omitempty"`
}

// ActionType identifies a side-effecting step a matched rule performs.
type ActionType string

const (
	ActionSendNotification ActionType = "send_notification"
	ActionCreateItem       ActionType = "create_item"
	ActionUpdateItem       ActionType = "update_item"
	ActionUpdateStatus     ActionType = "update_status"
	ActionCreateNote       ActionType = "create_note"
	ActionSendEmail        ActionType = "send_email"
)

// Action is one typed step in a rule's action sequence. Parameter values may
// contain {{path}} template tokens which are interpolated against the event
// context at execution time.
type Action struct {
	Type       ActionType       `yaml:"type"`
	Parameters map[string]Value `yaml:"parameters,omitempty"`
}

// Parameter returns the named parameter and whether it is present.
func (a Action) Parameter(key string) (Value, bool) {
	v, ok := a.Parameters[key]
	return v, ok
}

// StringParameter returns the string form of the named parameter, or ""
// when the parameter is absent.
func (a Action) StringParameter(key string) string {
	v, ok := a.Parameters[key]
	if !ok || v.IsUndefined() {
		return ""
	}
	return v.String()
}

// Rule is a declarative automation rule. Identity is ID; the registry keys
// rules by it. Rules are immutable once registered except for the Enabled
// flag, which is toggled through registry operations. Structural edits are
// a remove followed by an add.
type Rule struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Trigger     Trigger     `yaml:"trigger"`
	Conditions  []Condition `yaml:"conditions,omitempty"`
	Actions     []Action    `yaml:"actions,omitempty"`
	Enabled     bool        `yaml:"enabled"`
}

// UnmarshalYAML decodes a rule, defaulting Enabled to true when the field
// is omitted from the document.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	type plain struct {
		ID          string      `yaml:"id"`
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Trigger     Trigger     `yaml:"trigger"`
		Conditions  []Condition `yaml:"conditions"`
		Actions     []Action    `yaml:"actions"`
		Enabled     *bool       `yaml:"enabled"`
	}

	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}

	r.ID = raw.ID
	r.Name = raw.Name
	r.Description = raw.Description
	r.Trigger = raw.Trigger
	r.Conditions = raw.Conditions
	r.Actions = raw.Actions
	r.Enabled = raw.Enabled == nil || *raw.Enabled

	return nil
}

// Validate checks the structural integrity of a rule definition. It rejects
// only what dispatch can never use: a missing id, a missing or unknown
// trigger type, conditions without a field or operator, and actions without
// a type. Unknown operators and unknown action types are deliberately
// allowed through; the evaluator and executor handle them at runtime
// (default-deny and skip-with-warning respectively).
func (r *Rule) Validate() error {
	var problems []string

	if r.ID == "" {
		problems = append(problems, "rule id is required")
	}

	if r.Trigger.Type == "" {
		problems = append(problems, "trigger type is required")
	} else if !knownTrigger(r.Trigger.Type) {
		problems = append(problems, fmt.Sprintf("unknown trigger type %q", r.Trigger.Type))
	}

	for i, c := range r.Conditions {
		if c.Field == "" {
			problems = append(problems, fmt.Sprintf("condition %d: field is required", i))
		}
		if c.Operator == "" {
			problems = append(problems, fmt.Sprintf("condition %d: operator is required", i))
		}
	}

	for i, a := range r.Actions {
		if a.Type == "" {
			problems = append(problems, fmt.Sprintf("action %d: type is required", i))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{RuleID: r.ID, Problems: problems}
	}
	return nil
}

func knownTrigger(t TriggerType) bool {
	for _, k := range KnownTriggerTypes {
		if t == k {
			return true
		}
	}
	return false
}

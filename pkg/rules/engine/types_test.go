package engine

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRuleValidate(t *testing.T) {
	valid := Rule{
		ID:      "r1",
		Trigger: Trigger{Type: TriggerItemCreated},
		Conditions: []Condition{
			{Field: "task.priority", Operator: OperatorEquals, Value: String("high")},
		},
		Actions: []Action{
			{Type: ActionSendNotification},
		},
	}

	tests := []struct {
		name    string
		mutate  func(*Rule)
		wantErr bool
	}{
		{name: "valid rule", mutate: func(r *Rule) {}},
		{name: "missing id", mutate: func(r *Rule) { r.ID = "" }, wantErr: true},
		{name: "missing trigger type", mutate: func(r *Rule) { r.Trigger.Type = "" }, wantErr: true},
		{name: "unknown trigger type", mutate: func(r *Rule) { r.Trigger.Type = "comet_sighted" }, wantErr: true},
		{name: "condition missing field", mutate: func(r *Rule) { r.Conditions[0].Field = "" }, wantErr: true},
		{name: "condition missing operator", mutate: func(r *Rule) { r.Conditions[0].Operator = "" }, wantErr: true},
		{name: "action missing type", mutate: func(r *Rule) { r.Actions[0].Type = "" }, wantErr: true},

		// Unknown operators and action types pass validation: they degrade
		// at evaluation time so newer rule files work on older engines.
		{name: "unknown operator", mutate: func(r *Rule) { r.Conditions[0].Operator = "matches_regex" }},
		{name: "unknown action type", mutate: func(r *Rule) { r.Actions[0].Type = "launch_rocket" }},
		{name: "no conditions", mutate: func(r *Rule) { r.Conditions = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			rule.Conditions = append([]Condition(nil), valid.Conditions...)
			rule.Actions = append([]Action(nil), valid.Actions...)
			tt.mutate(&rule)

			err := rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRuleEnabledDefaultsTrue(t *testing.T) {
	var rule Rule
	doc := `
id: r1
trigger:
  type: item_created
actions:
  - type: send_notification
`
	if err := yaml.Unmarshal([]byte(doc), &rule); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if !rule.Enabled {
		t.Error("Enabled should default to true when omitted")
	}

	var disabled Rule
	if err := yaml.Unmarshal([]byte("id: r2\nenabled: false\ntrigger:\n  type: item_created\n"), &disabled); err != nil {
		t.Fatal(err)
	}
	if disabled.Enabled {
		t.Error("enabled: false should stick")
	}
}

func TestActionParameterAccessors(t *testing.T) {
	action := Action{
		Type: ActionCreateItem,
		Parameters: map[string]Value{
			"title":    String("Review {{task.title}}"),
			"estimate": Number(2),
		},
	}

	if got := action.StringParameter("title"); got != "Review {{task.title}}" {
		t.Errorf("StringParameter(title) = %q", got)
	}
	if got := action.StringParameter("missing"); got != "" {
		t.Errorf("StringParameter(missing) = %q, want empty", got)
	}
	if v, ok := action.Parameter("estimate"); !ok || !v.Equal(Number(2)) {
		t.Errorf("Parameter(estimate) = %v, %v", v, ok)
	}
}

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskdown-hq/loom/pkg/rules/engine"
)

const validRules = `rules:
  - id: overdue-escalation
    name: Escalate overdue tasks
    trigger:
      type: item_overdue
    conditions:
      - field: task.priority
        operator: equals
        value: high
    actions:
      - type: send_notification
        parameters:
          message: "Overdue: {{task.title}}"
  - id: quiet-rule
    name: Disabled by definition
    enabled: false
    trigger:
      type: item_created
    actions:
      - type: send_email
        parameters:
          to: someone@example.com
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.yaml", validRules)

	src := NewFileSource(dir, nil)
	rules, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("loaded %d rules, want 2", len(rules))
	}

	byID := make(map[string]engine.Rule)
	for _, r := range rules {
		byID[r.ID] = r
	}

	escalation, ok := byID["overdue-escalation"]
	if !ok {
		t.Fatal("overdue-escalation not loaded")
	}
	if !escalation.Enabled {
		t.Error("enabled should default to true when omitted")
	}
	if escalation.Trigger.Type != engine.TriggerItemOverdue {
		t.Errorf("trigger = %q", escalation.Trigger.Type)
	}
	if len(escalation.Conditions) != 1 || escalation.Conditions[0].Operator != engine.OperatorEquals {
		t.Errorf("conditions not decoded: %+v", escalation.Conditions)
	}
	if !escalation.Conditions[0].Value.Equal(engine.String("high")) {
		t.Errorf("condition value = %v", escalation.Conditions[0].Value)
	}

	if byID["quiet-rule"].Enabled {
		t.Error("explicit enabled: false was ignored")
	}
}

func TestFileSourceSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", validRules)
	writeFile(t, dir, "broken.yaml", "rules: [unclosed\n")
	writeFile(t, dir, "notrules.txt", "ignored entirely")
	writeFile(t, dir, "partial.yaml", `rules:
  - id: ok-rule
    trigger:
      type: daily_schedule
    actions:
      - type: create_note
        parameters:
          path: "Digests/{{date}}.md"
  - id: ""
    trigger:
      type: item_created
  - id: bad-trigger
    trigger:
      type: comet_sighted
`)

	src := NewFileSource(dir, nil)
	rules, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 2 from good.yaml + 1 valid rule from partial.yaml; the broken file,
	// the id-less rule and the unknown-trigger rule are skipped.
	if len(rules) != 3 {
		ids := make([]string, 0, len(rules))
		for _, r := range rules {
			ids = append(ids, r.ID)
		}
		t.Fatalf("loaded %d rules (%v), want 3", len(rules), ids)
	}
}

func TestFileSourceMissingDirectory(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent"), nil)
	rules, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("loaded %d rules from a missing directory", len(rules))
	}
}

func TestReloaderReconciles(t *testing.T) {
	exec := noopExecutor{}
	eng, err := engine.NewRuleEngine(&engine.Config{Executor: exec})
	if err != nil {
		t.Fatal(err)
	}

	// A default rule the reloader must never touch.
	defaultRule := engine.Rule{
		ID:      "builtin",
		Trigger: engine.Trigger{Type: engine.TriggerDailySchedule},
		Enabled: true,
	}
	if err := eng.AddRule(defaultRule); err != nil {
		t.Fatal(err)
	}

	src := NewStaticSource(
		engine.Rule{ID: "a", Trigger: engine.Trigger{Type: engine.TriggerItemCreated}, Enabled: true},
		engine.Rule{ID: "b", Trigger: engine.Trigger{Type: engine.TriggerItemCreated}, Enabled: true},
	)
	reloader := NewReloader(src, eng, nil)

	if err := reloader.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(eng.ListRules()); got != 3 {
		t.Fatalf("after first reload: %d rules, want 3", got)
	}

	// Drop "b", add "c": reload must remove b, keep builtin.
	src.SetRules([]engine.Rule{
		{ID: "a", Trigger: engine.Trigger{Type: engine.TriggerItemCreated}, Enabled: true},
		{ID: "c", Trigger: engine.Trigger{Type: engine.TriggerItemOverdue}, Enabled: true},
	})
	if err := reloader.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := eng.GetRule("b"); ok {
		t.Error("stale sourced rule b not removed")
	}
	if _, ok := eng.GetRule("c"); !ok {
		t.Error("new sourced rule c not installed")
	}
	if _, ok := eng.GetRule("builtin"); !ok {
		t.Error("reloader removed a default rule")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	fired := make(chan struct{}, 10)
	for i := 0; i < 5; i++ {
		d.Trigger(func() { fired <- struct{}{} })
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced callback never fired")
	}

	select {
	case <-fired:
		t.Error("burst of triggers fired more than once")
	case <-time.After(150 * time.Millisecond):
	}
}

type noopExecutor struct{}

func (noopExecutor) Execute(context.Context, engine.Action, engine.Context) error { return nil }

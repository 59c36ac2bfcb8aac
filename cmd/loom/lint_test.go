package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRuleFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLintFileValid(t *testing.T) {
	path := writeRuleFile(t, "rules.yaml", `
rules:
  - id: high-priority-alert
    trigger:
      type: item_created
    conditions:
      - field: task.priority
        operator: equals
        value: high
    actions:
      - type: send_notification
        parameters:
          message: "High priority: {{task.title}}"
`)

	findings, count := lintFile(path)
	if len(findings) != 0 {
		t.Errorf("findings = %v, want none", findings)
	}
	if count != 1 {
		t.Errorf("rule count = %d, want 1", count)
	}
}

func TestLintFileFindsProblems(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{
			name:    "broken yaml",
			content: "rules:\n  - id: [unclosed\n",
			want:    1,
		},
		{
			name:    "empty file",
			content: "",
			want:    1,
		},
		{
			name: "missing id and unknown trigger",
			content: `
rules:
  - trigger:
      type: item_created
    actions:
      - type: send_notification
  - id: b
    trigger:
      type: comet_sighted
    actions:
      - type: send_notification
`,
			want: 2,
		},
		{
			name: "duplicate ids",
			content: `
rules:
  - id: twice
    trigger:
      type: item_created
    actions:
      - type: send_notification
  - id: twice
    trigger:
      type: item_updated
    actions:
      - type: send_notification
`,
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRuleFile(t, "rules.yaml", tt.content)
			findings, _ := lintFile(path)
			if len(findings) != tt.want {
				t.Errorf("findings = %v (%d), want %d", findings, len(findings), tt.want)
			}
		})
	}
}

package vault

import (
	"strings"
	"testing"
	"time"

	"taskdown-hq/loom/pkg/rules/engine"
)

const taskFile = `---
id: 3f2c9a1e
title: Write report
type: task
status: open
priority: high
estimate: 3
---
# Write report

Notes go here.
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(taskFile)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	if got := doc.StringField("title"); got != "Write report" {
		t.Errorf("title = %q, want %q", got, "Write report")
	}
	if got := doc.StringField("estimate"); got != "3" {
		t.Errorf("estimate = %q, want %q", got, "3")
	}
	if !strings.HasPrefix(doc.Body, "# Write report") {
		t.Errorf("body = %q, want markdown heading first", doc.Body)
	}
}

func TestParseDocumentWithoutFrontmatter(t *testing.T) {
	doc, err := ParseDocument("# Just a note\n")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if doc.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", doc.Frontmatter)
	}
	if doc.Body != "# Just a note\n" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unterminated frontmatter", content: "---\ntitle: x\n"},
		{name: "frontmatter is not a mapping", content: "---\n- a\n- b\n---\nbody"},
		{name: "broken yaml", content: "---\ntitle: [unclosed\n---\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument(tt.content); err == nil {
				t.Error("ParseDocument() expected error, got nil")
			}
		})
	}
}

func TestRenderRoundTrip(t *testing.T) {
	doc := &Document{
		Frontmatter: map[string]any{
			"id":     "abc",
			"title":  "Plan sprint",
			"status": "open",
		},
		Body: "# Plan sprint\n",
	}

	rendered, err := doc.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	parsed, err := ParseDocument(rendered)
	if err != nil {
		t.Fatalf("ParseDocument(rendered) error = %v", err)
	}
	if got := parsed.StringField("title"); got != "Plan sprint" {
		t.Errorf("title after round trip = %q", got)
	}
	if parsed.Body != "# Plan sprint\n" {
		t.Errorf("body after round trip = %q", parsed.Body)
	}
}

func TestEventContext(t *testing.T) {
	doc, err := ParseDocument(taskFile)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	ectx := doc.EventContext("Items/write-report.md", now)

	if got := ectx.Lookup("task.priority"); !got.Equal(engine.String("high")) {
		t.Errorf("task.priority = %v, want high", got)
	}
	if got := ectx.Lookup("task.estimate"); !got.Equal(engine.Number(3)) {
		t.Errorf("task.estimate = %v, want 3", got)
	}
	if got := ectx.Lookup("task.path"); !got.Equal(engine.String("Items/write-report.md")) {
		t.Errorf("task.path = %v", got)
	}
	if got := ectx.Lookup("date"); !got.Equal(engine.String("2026-08-31")) {
		t.Errorf("date = %v, want 2026-08-31", got)
	}
}

func TestEventContextSkipsUnsupportedShapes(t *testing.T) {
	doc := &Document{
		Frontmatter: map[string]any{
			"title": "Tagged task",
			"tags":  []any{"a", "b"},
		},
	}

	ectx := doc.EventContext("Items/tagged.md", time.Now())
	if got := ectx.Lookup("task.title"); !got.Equal(engine.String("Tagged task")) {
		t.Errorf("task.title = %v", got)
	}
	if got := ectx.Lookup("task.tags"); !got.IsUndefined() {
		t.Errorf("task.tags = %v, want undefined (lists are skipped)", got)
	}
}

package vault

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"taskdown-hq/loom/pkg/rules/engine"
)

const frontmatterDelimiter = "---"

// Document is one markdown file in the vault: an optional YAML frontmatter
// block followed by a markdown body.
type Document struct {
	// Frontmatter holds the decoded YAML metadata. Nil when the file has no
	// frontmatter block.
	Frontmatter map[string]any

	// Body is the markdown content after the frontmatter block.
	Body string
}

// ParseDocument splits a markdown file into frontmatter and body. A file
// without a leading "---" line is all body. A frontmatter block that never
// closes or does not decode as a YAML mapping is an error.
func ParseDocument(content string) (*Document, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(normalized, frontmatterDelimiter+"\n") {
		return &Document{Body: content}, nil
	}

	rest := normalized[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		if !strings.HasPrefix(rest, frontmatterDelimiter) {
			return nil, fmt.Errorf("unterminated frontmatter block")
		}
		// Degenerate "---\n---" file: empty frontmatter, rest after the
		// closing delimiter is the body.
		end = -1
	}

	var block, body string
	if end >= 0 {
		block = rest[:end]
		body = rest[end+1+len(frontmatterDelimiter):]
	} else {
		body = rest[len(frontmatterDelimiter):]
	}
	body = strings.TrimPrefix(body, "\n")

	frontmatter := make(map[string]any)
	if strings.TrimSpace(block) != "" {
		if err := yaml.Unmarshal([]byte(block), &frontmatter); err != nil {
			return nil, fmt.Errorf("invalid frontmatter: %w", err)
		}
	}

	return &Document{Frontmatter: frontmatter, Body: body}, nil
}

// Render serializes the document back to markdown. Documents without
// frontmatter render as their bare body.
func (d *Document) Render() (string, error) {
	if len(d.Frontmatter) == 0 {
		return d.Body, nil
	}

	encoded, err := yaml.Marshal(d.Frontmatter)
	if err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelimiter)
	sb.WriteString("\n")
	sb.Write(encoded)
	sb.WriteString(frontmatterDelimiter)
	sb.WriteString("\n")
	sb.WriteString(d.Body)
	return sb.String(), nil
}

// StringField returns a frontmatter value rendered as a string, or "" when
// the key is absent.
func (d *Document) StringField(key string) string {
	raw, ok := d.Frontmatter[key]
	if !ok {
		return ""
	}
	value, err := engine.FromAny(raw)
	if err != nil {
		return ""
	}
	return value.String()
}

// EventContext builds the rule evaluation context for this document. The
// frontmatter becomes the "task" map; keys with shapes the condition
// language cannot represent (lists, mostly) are skipped rather than failing
// the whole event. The current date and time are included so schedule-style
// rules can reference them uniformly.
func (d *Document) EventContext(path string, now time.Time) engine.Context {
	task := make(map[string]engine.Value, len(d.Frontmatter)+1)
	for key, raw := range d.Frontmatter {
		value, err := engine.FromAny(raw)
		if err != nil {
			continue
		}
		task[key] = value
	}
	task["path"] = engine.String(path)

	return engine.Context{
		"task":    engine.Map(task),
		"date":    engine.String(now.Format("2006-01-02")),
		"time":    engine.String(now.Format("15:04")),
		"weekday": engine.String(now.Weekday().String()),
	}
}

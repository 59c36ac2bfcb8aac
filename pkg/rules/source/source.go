package source

import (
	"context"

	"taskdown-hq/loom/pkg/rules/engine"
)

// Source provides externally defined rules to the engine.
type Source interface {
	// Load returns all valid rules from the source. Malformed rules are
	// skipped individually; Load fails only when the source itself is
	// unreachable.
	Load(ctx context.Context) ([]engine.Rule, error)
}

// StaticSource is an in-memory rule source, mainly for tests and for hosts
// that assemble rules programmatically.
type StaticSource struct {
	rules []engine.Rule
}

// NewStaticSource creates a source over the given rules.
func NewStaticSource(rules ...engine.Rule) *StaticSource {
	return &StaticSource{rules: rules}
}

// Load returns a copy of the stored rules.
func (s *StaticSource) Load(_ context.Context) ([]engine.Rule, error) {
	rules := make([]engine.Rule, len(s.rules))
	copy(rules, s.rules)
	return rules, nil
}

// SetRules replaces the stored rules.
func (s *StaticSource) SetRules(rules []engine.Rule) {
	s.rules = rules
}

package engine

import "log/slog"

// ConditionMatcher evaluates a single condition against an event context.
type ConditionMatcher interface {
	// Match reports whether the condition holds. Implementations must be
	// total: evaluation problems degrade to false, never to a panic.
	Match(condition Condition, ectx Context) bool
}

// DefaultMatcher resolves the condition's dotted field path against the
// context and applies the operator table.
type DefaultMatcher struct {
	logger *slog.Logger
}

// NewDefaultMatcher creates the default condition matcher.
func NewDefaultMatcher(logger *slog.Logger) *DefaultMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultMatcher{logger: logger}
}

// Match evaluates one condition. Missing field paths resolve to Undefined,
// which flows into the operator semantics (so is_empty on a missing path
// is true, and every comparison operator is false).
func (m *DefaultMatcher) Match(condition Condition, ectx Context) bool {
	field := ectx.Lookup(condition.Field)
	matched := evaluateOperator(condition.Operator, field, condition.Value)

	m.logger.Debug("condition evaluated",
		"field", condition.Field,
		"operator", string(condition.Operator),
		"field_kind", field.Kind().String(),
		"matched", matched,
	)

	return matched
}

package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrEmptyRuleID indicates a registry operation on a rule without an id.
	ErrEmptyRuleID = errors.New("rule id cannot be empty")

	// ErrExecutorRequired indicates the engine was built without an action
	// executor.
	ErrExecutorRequired = errors.New("action executor cannot be nil")

	// ErrNotifierUnavailable indicates a notification action ran without a
	// configured notification sink.
	ErrNotifierUnavailable = errors.New("notification sink not configured")

	// ErrDocumentStoreUnavailable indicates a note action ran without a
	// configured document store.
	ErrDocumentStoreUnavailable = errors.New("document store not configured")

	// ErrItemWriterUnavailable indicates an item action ran without a
	// configured item registry.
	ErrItemWriterUnavailable = errors.New("item registry not configured")
)

// ValidationError indicates a malformed rule definition. Malformed rules
// are skipped individually at load time; validation never aborts loading
// of sibling rules.
type ValidationError struct {
	RuleID   string
	Problems []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("rule %q: validation error: %s", e.RuleID, e.Problems[0])
	}
	return fmt.Sprintf("rule %q: %d validation errors: %v", e.RuleID, len(e.Problems), e.Problems)
}

// ActionError indicates an action execution failure. It is caught at the
// dispatch boundary and logged; it never propagates to the caller.
type ActionError struct {
	RuleID     string
	ActionType ActionType
	Index      int
	Cause      error
}

// Error returns the error message.
func (e *ActionError) Error() string {
	return fmt.Sprintf("rule %q action %d (%s) failed: %v", e.RuleID, e.Index, e.ActionType, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ActionError) Unwrap() error {
	return e.Cause
}

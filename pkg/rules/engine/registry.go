package engine

import "sync"

// Registry is the thread-safe in-memory store of all known rules, keyed by
// rule id. It follows a consistent-read/exclusive-write discipline: readers
// take snapshots of rule values, so a dispatch in flight never observes a
// partially mutated rule.
//
// Rules are stored by value and treated as immutable apart from the Enabled
// flag, which Enable/Disable rewrite copy-on-write. Iteration order between
// rules is unspecified; order within one rule's conditions and actions is
// preserved.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Add inserts the rule, replacing any existing rule with the same id.
// Last add wins on collision.
func (r *Registry) Add(rule Rule) error {
	if rule.ID == "" {
		return ErrEmptyRuleID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[rule.ID] = rule
	return nil
}

// Remove deletes the rule with the given id. Removing an unknown id is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.rules, id)
}

// Enable sets the Enabled flag of an existing rule. Unknown ids are a
// no-op.
func (r *Registry) Enable(id string) {
	r.setEnabled(id, true)
}

// Disable clears the Enabled flag of an existing rule. Unknown ids are a
// no-op. The change takes effect for dispatches that snapshot the registry
// after this call; dispatches already in flight complete with the rule set
// they captured.
func (r *Registry) Disable(id string) {
	r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return
	}
	rule.Enabled = enabled
	r.rules[id] = rule
}

// Get retrieves a rule by id.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	return rule, ok
}

// List returns a snapshot of all rules. The slice is a copy; mutating it
// does not affect the registry.
func (r *Registry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	return rules
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rules)
}

// Snapshot returns a consistent copy of the enabled rules matching the
// trigger type, taken under one read lock. Disabled rules are filtered out
// here, before any condition is evaluated.
func (r *Registry) Snapshot(trigger TriggerType) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Rule
	for _, rule := range r.rules {
		if rule.Enabled && rule.Trigger.Type == trigger {
			matched = append(matched, rule)
		}
	}
	return matched
}

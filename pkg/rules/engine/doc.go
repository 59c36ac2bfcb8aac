// Package engine provides the automation rule engine for a markdown task
// vault: it matches declarative rules against domain events, evaluates
// dotted-path conditions over the event context, and executes side-effecting
// actions through collaborator interfaces.
//
// # Architecture
//
// The engine uses a four-layer design:
//
//  1. Registry - thread-safe rule store with consistent-read snapshots
//  2. Condition Matcher - evaluates one condition against the event context
//  3. Action Executor - performs one action through the collaborators
//  4. Rule Engine - the trigger dispatcher orchestrating the layers
//
// # Dispatch Flow
//
//	event source (vault watcher, scheduler, host app)
//	       ↓
//	Dispatch(trigger, context)
//	       ↓
//	Registry snapshot: enabled rules with matching trigger type
//	       ↓
//	For each matched rule:
//	  Conditions (AND, short-circuit) → all pass?
//	    Yes → Execute actions in order (per-action failure isolation)
//	    No  → Skip rule
//
// # Basic Usage
//
//	executor := engine.NewDefaultExecutor(notifier, store, items, logger)
//	eng, err := engine.NewRuleEngine(&engine.Config{Executor: executor})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, rule := range engine.DefaultRules() {
//	    eng.AddRule(rule)
//	}
//
//	eng.Dispatch(ctx, engine.TriggerItemCreated, engine.Context{
//	    "task": engine.Map(map[string]engine.Value{
//	        "title":    engine.String("Ship release"),
//	        "priority": engine.String("high"),
//	    }),
//	})
//
// # Failure Isolation
//
// Dispatch never returns an error. Condition evaluation is total (type
// mismatches and unknown operators evaluate to false), a failing action is
// logged and skipped while sibling actions and rules continue, and panics
// from collaborators are converted to logged errors at the rule boundary.
//
// # Thread Safety
//
// The engine is safe for concurrent use. Every dispatch operates on one
// consistent registry snapshot, and a per-rule lock keeps the
// conditions-then-actions sequence of a single rule from interleaving
// across concurrent dispatches. Registry mutations (add, remove, enable,
// disable) apply to dispatches that start after the mutation.
package engine
